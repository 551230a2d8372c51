package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deppfellow/storefront/internal/config"
	"github.com/deppfellow/storefront/internal/dberr"
	"github.com/deppfellow/storefront/internal/errs"
	"github.com/deppfellow/storefront/internal/lib/upload"
	"github.com/deppfellow/storefront/internal/middleware"
	"github.com/deppfellow/storefront/internal/model"
	"github.com/deppfellow/storefront/internal/server"
	"github.com/deppfellow/storefront/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func newTestServer() *server.Server {
	logger := zerolog.Nop()
	return &server.Server{
		Config: config.Defaults(),
		Logger: &logger,
	}
}

func newTestEcho(s *server.Server) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.NewGlobalMiddlewares(s).GlobalErrorHandler
	return e
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// ---- example ----

func TestExampleValidationPasses(t *testing.T) {
	s := newTestServer()
	e := newTestEcho(s)
	h := NewExampleHandler(s)
	e.POST("/api/example", Handle(h.Handler, h.Validate, http.StatusOK))

	rec := doJSON(e, http.MethodPost, "/api/example", `{"username":"  <b>bob</b> ","email":" Bob@Example.COM "}`)

	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[ExampleResponse](t, rec)
	assert.Equal(t, "Validation passed", res.Message)
	assert.Equal(t, "&lt;b&gt;bob&lt;/b&gt;", res.Data.Username)
	assert.Equal(t, "bob@example.com", res.Data.Email)
}

func TestExampleValidationCollectsAllErrors(t *testing.T) {
	s := newTestServer()
	e := newTestEcho(s)
	h := NewExampleHandler(s)
	e.POST("/api/example", Handle(h.Handler, h.Validate, http.StatusOK))

	rec := doJSON(e, http.MethodPost, "/api/example", `{"username":"ab","email":"not-an-email"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	res := decode[errs.Response](t, rec)
	assert.Equal(t, "Validation failed", res.Message)
	assert.Equal(t, []errs.FieldError{
		{Field: "username", Message: "must be at least 3 characters"},
		{Field: "email", Message: "must be a valid email address"},
	}, res.Errors)
}

func TestExampleWhitespaceOnlyIsMissing(t *testing.T) {
	s := newTestServer()
	e := newTestEcho(s)
	h := NewExampleHandler(s)
	e.POST("/api/example", Handle(h.Handler, h.Validate, http.StatusOK))

	rec := doJSON(e, http.MethodPost, "/api/example", `{"username":"   ","email":"   "}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	res := decode[errs.Response](t, rec)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "is required", res.Errors[0].Message)
	assert.Equal(t, "is required", res.Errors[1].Message)
}

func TestExampleMalformedJSON(t *testing.T) {
	s := newTestServer()
	e := newTestEcho(s)
	h := NewExampleHandler(s)
	e.POST("/api/example", Handle(h.Handler, h.Validate, http.StatusOK))

	rec := doJSON(e, http.MethodPost, "/api/example", `{"username":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	res := decode[errs.Response](t, rec)
	assert.Equal(t, "INVALID_REQUEST_BODY", res.Code)
}

// ---- upload ----

type fakeSaver struct {
	got []upload.Incoming
	err error
}

func (f *fakeSaver) Save(_ context.Context, files []upload.Incoming) ([]model.UploadedFile, error) {
	f.got = files
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.UploadedFile, len(files))
	for i, file := range files {
		stored := fmt.Sprintf("1700000000000-%d-%s", i, file.Filename)
		out[i] = model.UploadedFile{
			OriginalName: file.Filename,
			StoredName:   stored,
			RelativePath: "/uploads/" + stored,
		}
	}
	return out, nil
}

func multipartRequest(t *testing.T, field string, names ...string) *http.Request {
	t.Helper()

	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	for _, name := range names {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("content of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func newUploadEcho(saver *fakeSaver) *echo.Echo {
	s := newTestServer()
	e := newTestEcho(s)
	e.POST("/api/upload", NewUploadHandler(s, saver).Upload)
	return e
}

func TestUploadSingleFile(t *testing.T) {
	saver := &fakeSaver{}
	e := newUploadEcho(saver)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, multipartRequest(t, "image", "a.png"))

	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[map[string]any](t, rec)
	assert.Equal(t, "/uploads/1700000000000-0-a.png", res["filePath"])
	assert.NotContains(t, res, "files")
	require.Len(t, saver.got, 1)
	assert.Equal(t, "a.png", saver.got[0].Filename)
}

func TestUploadMultipleFiles(t *testing.T) {
	e := newUploadEcho(&fakeSaver{})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, multipartRequest(t, "image", "a.png", "b.png", "c.png"))

	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[MultiUploadResponse](t, rec)
	require.Len(t, res.Files, 3)
	assert.Equal(t, "/uploads/1700000000000-2-c.png", res.Files[2].Path)
	for _, f := range res.Files {
		assert.True(t, strings.HasPrefix(f.Path, "/uploads/"))
	}
}

func TestUploadWithoutFiles(t *testing.T) {
	e := newUploadEcho(&fakeSaver{})

	for name, req := range map[string]*http.Request{
		"empty multipart": multipartRequest(t, "image"),
		"wrong field":     multipartRequest(t, "document", "a.png"),
		"not multipart":   httptest.NewRequest(http.MethodPost, "/api/upload", nil),
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "No files uploaded", decode[errs.Response](t, rec).Message)
		})
	}
}

func TestUploadTooManyFiles(t *testing.T) {
	saver := &fakeSaver{}
	e := newUploadEcho(saver)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, multipartRequest(t, "image", "1.png", "2.png", "3.png", "4.png", "5.png", "6.png"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Too many files: at most 5 allowed", decode[errs.Response](t, rec).Message)
	assert.Nil(t, saver.got)
}

func TestUploadStorageFailure(t *testing.T) {
	e := newUploadEcho(&fakeSaver{err: errs.NewServerIOError("Failed to store file", errors.New("disk full"))})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, multipartRequest(t, "image", "a.png"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	res := decode[errs.Response](t, rec)
	assert.Equal(t, "Failed to store file", res.Message)
	assert.Equal(t, "disk full", res.Error)
	assert.NotEmpty(t, res.Stack)
}

// ---- catalog ----

type fakeBrands struct {
	docs map[string]*model.Brand
}

func (f *fakeBrands) List(_ context.Context, limit, skip int64) (*service.Page[model.Brand], error) {
	items := []model.Brand{}
	for _, d := range f.docs {
		items = append(items, *d)
	}
	return &service.Page[model.Brand]{Items: items, Total: int64(len(items)), Limit: limit, Skip: skip}, nil
}

func (f *fakeBrands) Get(_ context.Context, hexID string) (*model.Brand, error) {
	if d, ok := f.docs[hexID]; ok {
		return d, nil
	}
	return nil, errs.NewNotFoundError("Brand not found", nil)
}

func (f *fakeBrands) Create(_ context.Context, doc *model.Brand) (*model.Brand, error) {
	doc.ID = primitive.NewObjectID()
	f.docs[doc.ID.Hex()] = doc
	return doc, nil
}

func (f *fakeBrands) Update(ctx context.Context, hexID string, doc *model.Brand) (*model.Brand, error) {
	if _, err := f.Get(ctx, hexID); err != nil {
		return nil, err
	}
	f.docs[hexID] = doc
	return doc, nil
}

func (f *fakeBrands) Delete(ctx context.Context, hexID string) error {
	if _, err := f.Get(ctx, hexID); err != nil {
		return err
	}
	delete(f.docs, hexID)
	return nil
}

func newBrandEcho(brands *fakeBrands) *echo.Echo {
	s := newTestServer()
	e := newTestEcho(s)
	NewCatalogHandler[model.Brand, *model.Brand](s, brands).Register(e.Group("/api/brands"))
	return e
}

func TestCatalogCreateSanitizesAndReturns201(t *testing.T) {
	brands := &fakeBrands{docs: map[string]*model.Brand{}}
	e := newBrandEcho(brands)

	rec := doJSON(e, http.MethodPost, "/api/brands", `{"name":"  Acme ","slug":" ACME-Type "}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	res := decode[model.Brand](t, rec)
	assert.Equal(t, "Acme", res.Name)
	assert.Equal(t, "acme-type", res.Slug)
	assert.False(t, res.ID.IsZero())
}

func TestCatalogCreateInvalidBody(t *testing.T) {
	e := newBrandEcho(&fakeBrands{docs: map[string]*model.Brand{}})

	rec := doJSON(e, http.MethodPost, "/api/brands", `{"slug":"Not A Slug!"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	res := decode[errs.Response](t, rec)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, "name", res.Errors[0].Field)
	assert.Equal(t, "slug", res.Errors[1].Field)
}

func TestCatalogListRejectsOversizedLimit(t *testing.T) {
	e := newBrandEcho(&fakeBrands{docs: map[string]*model.Brand{}})

	rec := doJSON(e, http.MethodGet, "/api/brands?limit=500", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/brands?limit=10&skip=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[service.Page[model.Brand]](t, rec)
	assert.Equal(t, int64(10), page.Limit)
	assert.Equal(t, int64(5), page.Skip)
}

func TestCatalogGetUpdateDelete(t *testing.T) {
	id := primitive.NewObjectID()
	brands := &fakeBrands{docs: map[string]*model.Brand{
		id.Hex(): {Base: model.Base{ID: id}, Name: "Acme", Slug: "acme"},
	}}
	e := newBrandEcho(brands)

	rec := doJSON(e, http.MethodGet, "/api/brands/"+id.Hex(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Acme", decode[model.Brand](t, rec).Name)

	rec = doJSON(e, http.MethodPut, "/api/brands/"+id.Hex(), `{"name":"Acme Co","slug":"acme-co"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Acme Co", brands.docs[id.Hex()].Name)

	rec = doJSON(e, http.MethodDelete, "/api/brands/"+id.Hex(), "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = doJSON(e, http.MethodGet, "/api/brands/"+id.Hex(), "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Brand not found", decode[errs.Response](t, rec).Message)
}

func TestCatalogMongoErrorsAreMapped(t *testing.T) {
	s := newTestServer()
	e := newTestEcho(s)
	svc := service.NewCatalogService[model.Brand](missingStore{}, model.BrandsCollection)
	NewCatalogHandler[model.Brand, *model.Brand](s, svc).Register(e.Group("/api/brands"))

	rec := doJSON(e, http.MethodGet, "/api/brands/not-hex", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	nonHex := strings.Repeat("z", 24)
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		body := ""
		if method == http.MethodPut {
			body = `{"name":"Acme","slug":"acme"}`
		}
		rec = doJSON(e, method, "/api/brands/"+nonHex, body)
		require.Equal(t, http.StatusBadRequest, rec.Code, method)
		assert.Equal(t, "BRAND_INVALID_ID", decode[errs.Response](t, rec).Code, method)
	}

	rec = doJSON(e, http.MethodGet, "/api/brands/"+primitive.NewObjectID().Hex(), "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "BRAND_NOT_FOUND", decode[errs.Response](t, rec).Code)
}

// missingStore finds nothing, like an empty collection.
type missingStore struct {
	service.CatalogStore[model.Brand]
}

func (missingStore) FindByID(context.Context, primitive.ObjectID) (*model.Brand, error) {
	return nil, dberr.Wrap(mongo.ErrNoDocuments, model.BrandsCollection)
}

// ---- cart ----

type fakeCart struct {
	calls []string
}

func (f *fakeCart) Get(_ context.Context, cartID string) (model.CartView, error) {
	f.calls = append(f.calls, "get "+cartID)
	return model.CartView{ID: cartID, Items: []model.CartItem{}}, nil
}

func (f *fakeCart) AddItem(_ context.Context, cartID, productHex string, quantity int) (model.CartView, error) {
	f.calls = append(f.calls, fmt.Sprintf("add %s %d", productHex, quantity))
	return model.CartView{ID: cartID, ItemCount: quantity}, nil
}

func (f *fakeCart) UpdateItem(_ context.Context, cartID, productHex string, quantity int) (model.CartView, error) {
	f.calls = append(f.calls, fmt.Sprintf("update %s %d", productHex, quantity))
	return model.CartView{ID: cartID}, nil
}

func (f *fakeCart) RemoveItem(_ context.Context, cartID, productHex string) (model.CartView, error) {
	f.calls = append(f.calls, "remove "+productHex)
	return model.CartView{ID: cartID}, nil
}

func (f *fakeCart) Clear(_ context.Context, cartID string) error {
	f.calls = append(f.calls, "clear "+cartID)
	return nil
}

const testCartID = "3f1c2b7e-8d4a-4c1e-9b2f-6a7d8e9f0a1b"

func newCartEcho(carts *fakeCart) *echo.Echo {
	s := newTestServer()
	e := newTestEcho(s)
	NewCartHandler(s, carts).Register(e.Group("/api/cart"))
	return e
}

func TestCartRoutes(t *testing.T) {
	carts := &fakeCart{}
	e := newCartEcho(carts)
	product := primitive.NewObjectID().Hex()

	rec := doJSON(e, http.MethodGet, "/api/cart/"+testCartID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testCartID, decode[model.CartView](t, rec).ID)

	rec = doJSON(e, http.MethodPost, "/api/cart/"+testCartID+"/items", `{"productId":"`+product+`","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[model.CartView](t, rec).ItemCount)

	rec = doJSON(e, http.MethodPatch, "/api/cart/"+testCartID+"/items/"+product, `{"quantity":0}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodDelete, "/api/cart/"+testCartID+"/items/"+product, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodDelete, "/api/cart/"+testCartID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, []string{
		"get " + testCartID,
		"add " + product + " 2",
		"update " + product + " 0",
		"remove " + product,
		"clear " + testCartID,
	}, carts.calls)
}

func TestCartRejectsBadInput(t *testing.T) {
	carts := &fakeCart{}
	e := newCartEcho(carts)
	product := primitive.NewObjectID().Hex()

	tests := []struct {
		name   string
		method string
		target string
		body   string
		field  string
	}{
		{"cart id not a uuid", http.MethodGet, "/api/cart/abc", "", "cartId"},
		{"product id not an object id", http.MethodPost, "/api/cart/" + testCartID + "/items", `{"productId":"xyz","quantity":1}`, "productId"},
		{"quantity above cap", http.MethodPost, "/api/cart/" + testCartID + "/items", `{"productId":"` + product + `","quantity":100}`, "quantity"},
		{"missing quantity on update", http.MethodPatch, "/api/cart/" + testCartID + "/items/" + product, `{}`, "quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(e, tt.method, tt.target, tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			res := decode[errs.Response](t, rec)
			require.NotEmpty(t, res.Errors)
			assert.Equal(t, tt.field, res.Errors[0].Field)
		})
	}
	assert.Empty(t, carts.calls)
}

// ---- health ----

func TestHealthHealthy(t *testing.T) {
	s := newTestServer()
	e := newTestEcho(s)
	h := newHealthHandler(s, map[string]pingFunc{
		"database": func(context.Context) error { return nil },
	})
	e.GET("/status", h.CheckHealth)

	rec := doJSON(e, http.MethodGet, "/status", "")

	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[healthResponse](t, rec)
	assert.Equal(t, "healthy", res.Status)
	assert.Equal(t, "healthy", res.Checks["database"].Status)
}

func TestHealthUnhealthy(t *testing.T) {
	s := newTestServer()
	e := newTestEcho(s)
	h := newHealthHandler(s, map[string]pingFunc{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	e.GET("/status", h.CheckHealth)

	rec := doJSON(e, http.MethodGet, "/status", "")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	res := decode[healthResponse](t, rec)
	assert.Equal(t, "unhealthy", res.Status)
	assert.Equal(t, "connection refused", res.Checks["redis"].Error)
	assert.Equal(t, "healthy", res.Checks["database"].Status)
}
