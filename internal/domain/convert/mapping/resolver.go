package mapping

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"

	"github.com/autoorder/autoorder/internal/domain/convert/coerce"
	"github.com/autoorder/autoorder/internal/domain/convert/fields"
	"github.com/autoorder/autoorder/internal/domain/convert/parser"
)

// TransformedRow maps target field names to coerced values (string, int64 or
// float64). A target with no directive and no fixed value is absent from the
// map entirely; absence renders as a blank output cell, never as "null".
type TransformedRow map[string]any

// Resolver applies a mapping spec to source rows. The template headers give
// it the full target schema, which it needs to place the derived amount
// field even when that field carries no directive of its own.
type Resolver struct {
	templateHeaders []string
}

// NewResolver creates a resolver for the given output schema.
func NewResolver(templateHeaders []string) *Resolver {
	return &Resolver{templateHeaders: templateHeaders}
}

// Resolve produces one transformed row. Precedence per target field:
// fixed value, then directive, then omission. Fixed values are an override
// layer; when one exists the directive is not consulted at all.
func (r *Resolver) Resolve(spec *Spec, fixed FixedValues, source parser.Row) TransformedRow {
	out := make(TransformedRow, spec.Len()+len(fixed))

	for _, target := range spec.Targets() {
		if _, overridden := fixed[target]; overridden {
			continue
		}
		d, _ := spec.Get(target)
		switch d.Kind {
		case Fixed, Auto:
			out[target] = d.Literal
		case Passthrough:
			raw, defined := source[d.Source]
			if !defined {
				continue
			}
			out[target] = coerce.Value(raw, target)
		}
	}

	// Fixed values win outright, including targets the spec never names.
	fixedKeys := make([]string, 0, len(fixed))
	for k := range fixed {
		fixedKeys = append(fixedKeys, k)
	}
	sort.Strings(fixedKeys)
	for _, k := range fixedKeys {
		out[k] = fixed[k]
	}

	r.deriveAmount(out)
	return out
}

// deriveAmount computes quantity x unit price into the first amount-like
// template column, but only when both operands resolved numerically and
// nothing else already mapped that column.
func (r *Resolver) deriveAmount(row TransformedRow) {
	var qty, price decimal.Decimal
	var haveQty, havePrice bool

	resolved := make([]string, 0, len(row))
	for field := range row {
		resolved = append(resolved, field)
	}
	sort.Strings(resolved)

	for _, field := range resolved {
		switch value := row[field]; {
		case !haveQty && fields.IsQuantity(field):
			if n, ok := value.(int64); ok {
				qty = decimal.NewFromInt(n)
				haveQty = true
			}
		case !havePrice && fields.IsPrice(field):
			if f, ok := value.(float64); ok {
				price = decimal.NewFromFloat(f)
				havePrice = true
			}
		}
	}
	if !haveQty || !havePrice {
		return
	}

	for _, header := range r.templateHeaders {
		if !fields.IsAmount(header) {
			continue
		}
		if _, set := row[header]; set {
			return
		}
		amount, _ := qty.Mul(price).Float64()
		row[header] = amount
		return
	}
}

// defaultTargets is the fixed vocabulary the no-mapping fallback can fill.
// Each target lists its source-column synonyms in match-priority order.
var defaultTargets = []struct {
	target   string
	synonyms []string
}{
	{"상품명", []string{"상품명", "품목명", "제품명", "상품", "제품", "품목", "product", "item"}},
	{"수량", []string{"수량", "주문수량", "개수", "quantity", "qty"}},
	{"단가", []string{"단가", "가격", "price", "unit_price"}},
	{"고객명", []string{"고객명", "주문자", "받는분", "구매자", "customer", "name"}},
	{"연락처", []string{"연락처", "전화번호", "휴대폰", "phone", "tel"}},
	{"주소", []string{"주소", "배송지", "address"}},
}

// DefaultSpec builds a best-effort passthrough mapping when the caller
// supplied no mapping at all: each known target field is matched to the
// first source column containing one of its synonyms, with a fuzzy match as
// a last resort. Exists so the system stays usable without a mapping step.
func DefaultSpec(sourceHeaders []string) *Spec {
	spec := NewSpec()
	for _, dt := range defaultTargets {
		if source, ok := matchSource(sourceHeaders, dt.synonyms); ok {
			spec.Set(dt.target, Directive{Kind: Passthrough, Source: source})
		}
	}
	return spec
}

func matchSource(headers []string, synonyms []string) (string, bool) {
	for _, syn := range synonyms {
		for _, h := range headers {
			if strings.Contains(strings.ToLower(h), strings.ToLower(syn)) {
				return h, true
			}
		}
	}
	// Fuzzy pass catches headers with stray whitespace or decoration,
	// e.g. "상 품 명" or "상품명(옵션포함)".
	for _, syn := range synonyms {
		ranks := fuzzy.RankFindNormalizedFold(syn, headers)
		if len(ranks) == 0 {
			continue
		}
		sort.Sort(ranks)
		return ranks[0].Target, true
	}
	return "", false
}
