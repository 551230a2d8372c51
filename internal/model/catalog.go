package model

import (
	"github.com/deppfellow/storefront/internal/validation"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	BrandsCollection        = "brands"
	IllustrationsCollection = "illustrations"
	ProductsCollection      = "products"
	TypefacesCollection     = "typefaces"
)

type Brand struct {
	Base        `bson:",inline"`
	Name        string `bson:"name" json:"name" mod:"trim" validate:"required,max=120"`
	Slug        string `bson:"slug" json:"slug" mod:"trim,lcase" validate:"required,max=120,slug"`
	Description string `bson:"description" json:"description" mod:"trim" validate:"max=2000"`
	Website     string `bson:"website,omitempty" json:"website,omitempty" mod:"trim" validate:"omitempty,url"`
	LogoPath    string `bson:"logoPath,omitempty" json:"logoPath,omitempty" mod:"trim" validate:"omitempty,startswith=/uploads/"`
}

func (b *Brand) Validate() error {
	return validation.Struct(b)
}

type Illustration struct {
	Base        `bson:",inline"`
	Title       string   `bson:"title" json:"title" mod:"trim" validate:"required,max=200"`
	Artist      string   `bson:"artist" json:"artist" mod:"trim" validate:"required,max=120"`
	Description string   `bson:"description" json:"description" mod:"trim" validate:"max=2000"`
	ImagePath   string   `bson:"imagePath,omitempty" json:"imagePath,omitempty" mod:"trim" validate:"omitempty,startswith=/uploads/"`
	Price       int64    `bson:"price" json:"price" validate:"gte=0"`
	Tags        []string `bson:"tags" json:"tags" mod:"dive,trim,lcase" validate:"max=20,dive,required,max=40"`
}

func (i *Illustration) Validate() error {
	return validation.Struct(i)
}

type Product struct {
	Base        `bson:",inline"`
	Name        string              `bson:"name" json:"name" mod:"trim" validate:"required,max=200"`
	Description string              `bson:"description" json:"description" mod:"trim" validate:"max=5000"`
	Category    string              `bson:"category" json:"category" mod:"trim,lcase" validate:"required,max=60"`
	Price       int64               `bson:"price" json:"price" validate:"gte=0"`
	Currency    string              `bson:"currency" json:"currency" mod:"trim,ucase" validate:"required,len=3,alpha"`
	Images      []string            `bson:"images" json:"images" mod:"dive,trim" validate:"max=10,dive,startswith=/uploads/"`
	Stock       int                 `bson:"stock" json:"stock" validate:"gte=0"`
	BrandID     *primitive.ObjectID `bson:"brandId,omitempty" json:"brandId,omitempty"`
}

func (p *Product) Validate() error {
	return validation.Struct(p)
}

type Typeface struct {
	Base        `bson:",inline"`
	Name        string   `bson:"name" json:"name" mod:"trim" validate:"required,max=120"`
	Foundry     string   `bson:"foundry" json:"foundry" mod:"trim" validate:"required,max=120"`
	Styles      []string `bson:"styles" json:"styles" mod:"dive,trim" validate:"min=1,max=30,dive,required"`
	License     string   `bson:"license" json:"license" mod:"trim" validate:"required,max=60"`
	Price       int64    `bson:"price" json:"price" validate:"gte=0"`
	PreviewPath string   `bson:"previewPath,omitempty" json:"previewPath,omitempty" mod:"trim" validate:"omitempty,startswith=/uploads/"`
}

func (t *Typeface) Validate() error {
	return validation.Struct(t)
}
