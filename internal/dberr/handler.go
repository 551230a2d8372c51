package dberr

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/deppfellow/storefront/internal/errs"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Code is the category of a database failure.
type Code string

const (
	NotFound     Code = "NOT_FOUND"
	DuplicateKey Code = "ALREADY_EXISTS"
	InvalidID    Code = "INVALID_ID"
	Unavailable  Code = "UNAVAILABLE"
	Other        Code = "OTHER"
)

// Error tags a driver error with the collection it came from, so the
// mapped message can name the entity ("Brand not found").
type Error struct {
	Collection string
	driverErr  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("collection %s: %v", e.Collection, e.driverErr)
}

func (e *Error) Unwrap() error {
	return e.driverErr
}

// Wrap tags err with its collection. A nil err stays nil.
func Wrap(err error, collection string) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&Error{Collection: collection, driverErr: err})
}

// ErrCode reports the category of err.
func ErrCode(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, mongo.ErrNoDocuments):
		return NotFound
	case mongo.IsDuplicateKeyError(err):
		return DuplicateKey
	case errors.Is(err, primitive.ErrInvalidHex), isHexByteError(err):
		return InvalidID
	case mongo.IsTimeout(err), mongo.IsNetworkError(err), errors.Is(err, mongo.ErrClientDisconnected):
		return Unavailable
	}
	return Other
}

// isHexByteError matches ObjectIDFromHex failures on a 24-character id
// holding a non-hex character. Only a wrong length yields ErrInvalidHex.
func isHexByteError(err error) bool {
	var byteErr hex.InvalidByteError
	return errors.As(err, &byteErr)
}

// generateErrorCode builds "<ENTITY>_<ACTION>", e.g. BRAND_ALREADY_EXISTS.
func generateErrorCode(collection string, code Code) string {
	return fmt.Sprintf("%s_%s", strings.ToUpper(singular(collection)), code)
}

func singular(collection string) string {
	if collection == "" {
		return "record"
	}
	if strings.HasSuffix(collection, "s") && len(collection) > 1 {
		return collection[:len(collection)-1]
	}
	return collection
}

// humanizeText converts snake_case or camelCase identifiers into Title Case.
//
//	"brand_id" -> "Brand Id"
//	"previewPath" -> "Preview Path"
func humanizeText(text string) string {
	if text == "" {
		return ""
	}
	text = camelBoundary.ReplaceAllString(text, "$1 $2")
	return cases.Title(language.English).String(strings.ReplaceAll(text, "_", " "))
}

var (
	camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	dupKeyIndex   = regexp.MustCompile(`index: ([A-Za-z0-9_.\-]+) dup key`)
	indexSuffix   = regexp.MustCompile(`_-?1$`)
)

// extractFieldForDuplicateKey reads the index name from a E11000 message.
//
//	"... index: slug_1 dup key: { slug: \"acme\" }" -> "slug"
//
// Compound and custom-named indexes fall back to "".
func extractFieldForDuplicateKey(err error) string {
	matches := dupKeyIndex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return ""
	}

	field := indexSuffix.ReplaceAllString(matches[1], "")
	if strings.Contains(field, "_1_") || strings.Contains(field, "_-1_") {
		return ""
	}
	return field
}

// HandleError converts a database error into an *errs.HTTPError.
//
//   - *errs.HTTPError: returned unchanged
//   - ErrNoDocuments: 404 "<Entity> not found"
//   - duplicate key: 400 "A <entity> with this <Field> already exists"
//   - invalid ObjectID hex: 400 "Invalid <entity> id"
//   - network/timeout: 500 server I/O error
//   - anything else: generic 500
func HandleError(err error) error {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	collection := ""
	var dbErr *Error
	if errors.As(err, &dbErr) {
		collection = dbErr.Collection
	}
	entity := humanizeText(singular(collection))

	code := ErrCode(err)
	errorCode := generateErrorCode(collection, code)

	switch code {
	case NotFound:
		return errs.NewNotFoundError(fmt.Sprintf("%s not found", entity), &errorCode)

	case DuplicateKey:
		field := "identifier"
		if name := extractFieldForDuplicateKey(err); name != "" {
			field = humanizeText(name)
		}
		message := fmt.Sprintf("A %s with this %s already exists", strings.ToLower(entity), field)
		return errs.NewBadRequestError(message, &errorCode, nil)

	case InvalidID:
		return errs.NewBadRequestError(fmt.Sprintf("Invalid %s id", strings.ToLower(entity)), &errorCode, nil)

	case Unavailable:
		return errs.NewServerIOError("Database unavailable", err)
	}

	return errs.NewInternalServerError(err)
}
