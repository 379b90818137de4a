package product

import (
	"encoding/json"
	"fmt"
	"io"
)

// Shape selects the wire representation of a Product.
type Shape string

const (
	// ShapePlain nests the category under "category".
	ShapePlain Shape = "plain"

	// ShapeDTO nests the category under "categoryDTO".
	ShapeDTO Shape = "dto"
)

// ParseShape parses a shape name. An empty name selects ShapePlain.
func ParseShape(s string) (Shape, error) {
	switch Shape(s) {
	case "", ShapePlain:
		return ShapePlain, nil
	case ShapeDTO:
		return ShapeDTO, nil
	default:
		return "", fmt.Errorf("unknown product shape %q", s)
	}
}

// dtoWire is the DTO shape. Category is read as a fallback only and is
// never written.
type dtoWire struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	Price       Price     `json:"price"`
	CreateAt    Date      `json:"createAt"`
	Image       *string   `json:"image"`
	CategoryDTO *Category `json:"categoryDTO"`
	Category    *Category `json:"category,omitempty"`
}

// Codec encodes and decodes products in one wire shape.
// The zero value uses ShapePlain.
type Codec struct {
	shape Shape
}

// NewCodec returns a codec for the given shape.
func NewCodec(shape Shape) Codec {
	return Codec{shape: shape}
}

// Shape returns the codec's wire shape.
func (c Codec) Shape() Shape {
	if c.shape == "" {
		return ShapePlain
	}
	return c.shape
}

// Marshal encodes p.
func (c Codec) Marshal(p *Product) ([]byte, error) {
	if c.Shape() == ShapeDTO {
		return json.Marshal(toDTO(p))
	}
	return json.Marshal(p)
}

// Unmarshal decodes data into p.
func (c Codec) Unmarshal(data []byte, p *Product) error {
	if c.Shape() == ShapeDTO {
		var w dtoWire
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		*p = fromDTO(&w)
		return nil
	}
	return json.Unmarshal(data, p)
}

// Encode writes p to w followed by a newline.
func (c Codec) Encode(w io.Writer, p *Product) error {
	if c.Shape() == ShapeDTO {
		return json.NewEncoder(w).Encode(toDTO(p))
	}
	return json.NewEncoder(w).Encode(p)
}

// Decode reads one product from dec.
func (c Codec) Decode(dec *json.Decoder, p *Product) error {
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	return c.Unmarshal(raw, p)
}

func toDTO(p *Product) *dtoWire {
	return &dtoWire{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		CreateAt:    p.CreateAt,
		Image:       p.Image,
		CategoryDTO: p.Category,
	}
}

func fromDTO(w *dtoWire) Product {
	category := w.CategoryDTO
	if category == nil {
		category = w.Category
	}
	return Product{
		ID:       w.ID,
		Name:     w.Name,
		Price:    w.Price,
		CreateAt: w.CreateAt,
		Image:    w.Image,
		Category: category,
	}
}
