package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"lotmarket/internal/usecase"
)

const schemaBase = "https://lotmarket.local/schemas/"

// 金額は数値でも文字列でもよい（小数2桁まで）
const defsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$defs": {
    "id": {"type": "integer", "minimum": 1},
    "money": {
      "type": ["number", "string"],
      "minimum": 0,
      "pattern": "^[0-9]+(\\.[0-9]{1,2})?$"
    },
    "shipping": {
      "type": "object",
      "required": ["name", "line1", "city", "postalCode", "country"],
      "properties": {
        "name": {"type": "string", "minLength": 1, "maxLength": 255},
        "company": {"type": "string", "maxLength": 255},
        "line1": {"type": "string", "minLength": 1, "maxLength": 255},
        "line2": {"type": "string", "maxLength": 255},
        "city": {"type": "string", "minLength": 1, "maxLength": 255},
        "region": {"type": "string", "maxLength": 100},
        "postalCode": {"type": "string", "minLength": 1, "maxLength": 20},
        "country": {"type": "string", "pattern": "^[A-Za-z]{2}$"},
        "phone": {"type": "string", "maxLength": 30}
      }
    },
    "item": {
      "type": "object",
      "required": ["productId", "quantity", "unitPrice"],
      "properties": {
        "productId": {"$ref": "#/$defs/id"},
        "quantity": {"type": "integer", "minimum": 1},
        "unitPrice": {"$ref": "#/$defs/money"},
        "totalPrice": {"$ref": "#/$defs/money"},
        "selectedVariations": {
          "type": "object",
          "additionalProperties": {"type": "string", "minLength": 1}
        }
      }
    },
    "order": {
      "type": "object",
      "required": ["items"],
      "properties": {
        "sellerId": {"$ref": "#/$defs/id"},
        "totalAmount": {"$ref": "#/$defs/money"},
        "status": {"enum": ["ordered", "awaiting_wire"]},
        "addressId": {"$ref": "#/$defs/id"},
        "shippingDetails": {"$ref": "#/$defs/shipping"},
        "paymentDetails": {
          "type": "object",
          "properties": {
            "method": {"type": "string", "maxLength": 50},
            "reference": {"type": "string", "maxLength": 255}
          }
        },
        "estimatedDeliveryDate": {"type": "string", "format": "date-time"},
        "items": {"type": "array", "minItems": 1, "items": {"$ref": "#/$defs/item"}}
      },
      "anyOf": [
        {"required": ["shippingDetails"]},
        {"required": ["addressId"]}
      ]
    }
  }
}`

const orderSchema = `{"$ref": "defs.schema.json#/$defs/order"}`

const checkoutSchema = `{
  "type": "object",
  "required": ["orders"],
  "properties": {
    "orders": {
      "type": "array",
      "minItems": 1,
      "maxItems": 50,
      "items": {"$ref": "defs.schema.json#/$defs/order"}
    }
  }
}`

// 注文APIのリクエストボディをJSON Schemaで検証する
type OrderSchema struct {
	order    *jsonschema.Schema
	checkout *jsonschema.Schema
}

func NewOrderSchema() (*OrderSchema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.AssertFormat = true

	resources := map[string]string{
		"defs.schema.json":     defsSchema,
		"order.schema.json":    orderSchema,
		"checkout.schema.json": checkoutSchema,
	}
	for name, body := range resources {
		if err := c.AddResource(schemaBase+name, strings.NewReader(body)); err != nil {
			return nil, fmt.Errorf("order schema load %s: %w", name, err)
		}
	}

	order, err := c.Compile(schemaBase + "order.schema.json")
	if err != nil {
		return nil, fmt.Errorf("order schema compile: %w", err)
	}
	checkout, err := c.Compile(schemaBase + "checkout.schema.json")
	if err != nil {
		return nil, fmt.Errorf("checkout schema compile: %w", err)
	}
	return &OrderSchema{order: order, checkout: checkout}, nil
}

// スキーマは固定文字列なので失敗はバグ
func MustOrderSchema() *OrderSchema {
	s, err := NewOrderSchema()
	if err != nil {
		panic(err)
	}
	return s
}

// POST /api/orders
func (s *OrderSchema) ValidateOrder(raw []byte) error {
	return validate(s.order, raw)
}

// POST /api/checkout
func (s *OrderSchema) ValidateCheckout(raw []byte) error {
	return validate(s.checkout, raw)
}

func validate(schema *jsonschema.Schema, raw []byte) error {
	//数値はjson.Numberのまま渡して桁を落とさない
	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()
	var v any
	if err := d.Decode(&v); err != nil {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	if d.More() {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid json")
	}

	err := schema.Validate(v)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	return usecase.NewValidationError(fieldErrors(ve))
}

// 末端のエラーだけを項目ごとに集める
func fieldErrors(ve *jsonschema.ValidationError) []usecase.FieldError {
	seen := map[string]bool{}
	var out []usecase.FieldError

	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) > 0 {
			for _, c := range e.Causes {
				walk(c)
			}
			return
		}
		field := e.InstanceLocation
		if field == "" {
			field = "/"
		}
		k := field + "\x00" + e.Message
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, usecase.FieldError{Field: field, Message: e.Message})
	}
	walk(ve)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}
