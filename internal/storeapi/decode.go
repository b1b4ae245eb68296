package storeapi

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/macieszak/confectionery-storefront/internal/domain/product"
)

// decodeProducts decodes a JSON array of product records.
func decodeProducts(data []byte) ([]product.Product, error) {
	d := jx.DecodeBytes(data)
	out := make([]product.Product, 0, 16)
	if err := d.Arr(func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeOneProduct decodes a single top-level product record.
func decodeOneProduct(data []byte) (product.Product, error) {
	return decodeProduct(jx.DecodeBytes(data))
}

// decodeProduct reads one product object. The nested image.name is mandatory:
// without it the product cannot be rendered, so its absence is a contract
// violation rather than an empty image.
func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			id, err := d.Int64()
			if err != nil {
				return errors.Wrap(err, "id")
			}
			p.ID = id
		case "name":
			name, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "name")
			}
			p.Name = name
		case "category":
			cat, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "category")
			}
			p.Category = product.ParseCategory(cat)
		case "price":
			num, err := d.Num()
			if err != nil {
				return errors.Wrap(err, "price")
			}
			price, err := decimal.NewFromString(num.String())
			if err != nil {
				return errors.Wrap(err, "price")
			}
			if price.IsNegative() {
				return errors.Errorf("negative price %s", price)
			}
			p.Price = price
		case "description":
			desc, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "description")
			}
			p.Description = desc
		case "image":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key != "name" {
					return d.Skip()
				}
				name, err := d.Str()
				if err != nil {
					return errors.Wrap(err, "image.name")
				}
				p.ImageName = name
				return nil
			})
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return product.Product{}, err
	}

	if p.ImageName == "" {
		return product.Product{}, errors.New("missing image.name")
	}
	return p, nil
}
