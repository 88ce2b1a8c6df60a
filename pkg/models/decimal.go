package models

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/openslides/openslides.go/pkg/codec"
	"github.com/shopspring/decimal"
)

// decimalPlaces is the precision the server uses for decimal fields.
const decimalPlaces = 6

// Decimal is a decimal field. The server sends decimals as strings such as
// "12.000000"; plain numbers are accepted too.
type Decimal struct {
	decimal.Decimal
}

func NewDecimal(v float64) Decimal {
	return Decimal{decimal.NewFromFloat(v)}
}

func DecimalFromInt(v int64) Decimal {
	return Decimal{decimal.NewFromInt(v)}
}

// ParseDecimal coerces a decoded wire value into a Decimal.
func ParseDecimal(v any) (Decimal, error) {
	switch x := v.(type) {
	case nil:
		return Decimal{}, nil
	case Decimal:
		return x, nil
	case string:
		if strings.TrimSpace(x) == "" {
			return Decimal{}, nil
		}
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return Decimal{}, fmt.Errorf("invalid decimal %q: %w", x, err)
		}
		return Decimal{d}, nil
	case float64:
		return Decimal{decimal.NewFromFloat(x)}, nil
	case int:
		return Decimal{decimal.NewFromInt(int64(x))}, nil
	case int64:
		return Decimal{decimal.NewFromInt(x)}, nil
	case uint64:
		return Decimal{decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0)}, nil
	case cbor.Tag:
		if x.Number != codec.DecimalStringTag {
			return Decimal{}, fmt.Errorf("unexpected cbor tag %d for decimal", x.Number)
		}
		return ParseDecimal(x.Content)
	default:
		return Decimal{}, fmt.Errorf("unsupported decimal type %T", v)
	}
}

func (d Decimal) String() string {
	return d.StringFixed(decimalPlaces)
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*d = Decimal{}
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	parsed, err := ParseDecimal(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Decimal) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(cbor.Tag{Number: codec.DecimalStringTag, Content: d.String()})
}

func (d *Decimal) UnmarshalCBOR(data []byte) error {
	var v any
	if err := cbor.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := ParseDecimal(v)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
