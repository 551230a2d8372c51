package service

import (
	"github.com/deppfellow/storefront/internal/lib/upload"
	"github.com/deppfellow/storefront/internal/model"
	"github.com/deppfellow/storefront/internal/repository"
)

type Services struct {
	Brands        *CatalogService[model.Brand]
	Illustrations *CatalogService[model.Illustration]
	Products      *CatalogService[model.Product]
	Typefaces     *CatalogService[model.Typeface]
	Carts         *CartService
	Uploads       *UploadService
}

func NewServices(repos *repository.Repositories, files *upload.DiskStore) *Services {
	return &Services{
		Brands:        NewCatalogService[model.Brand](repos.Brands, model.BrandsCollection),
		Illustrations: NewCatalogService[model.Illustration](repos.Illustrations, model.IllustrationsCollection),
		Products:      NewCatalogService[model.Product](repos.Products, model.ProductsCollection),
		Typefaces:     NewCatalogService[model.Typeface](repos.Typefaces, model.TypefacesCollection),
		Carts:         NewCartService(repos.Carts, repos.Products),
		Uploads:       NewUploadService(files, repos.Uploads),
	}
}
