package jsonl

import (
	"strings"

	"github.com/tidwall/gjson"

	"ecostim/domain/product"
)

// Columns are the product fields lifted out of each JSON document.
var Columns = []string{
	product.ColProductName,
	product.ColProductNameDA,
	product.ColProductNameEN,
	product.ColBrands,
	product.ColCategoriesTags,
	product.ColMainCategory,
	product.ColMainCategoryEN,
	product.ColLabelsTags,
	product.ColLanguagesTags,
	product.ColCountriesTags,
	product.ColLC,
	product.ColEcoscoreGrade,
	product.ColEnvironmentalGrade,
	product.ColEcoscoreScore,
}

// ToRow flattens a product document. Tag arrays become comma separated
// strings, the layout of the tabular dumps; null and absent fields are left out.
func ToRow(doc gjson.Result) product.RawAttributes {
	row := make(product.RawAttributes, len(Columns))
	for _, col := range Columns {
		v := doc.Get(col)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if v.IsArray() {
			parts := make([]string, 0, 4)
			v.ForEach(func(_, el gjson.Result) bool {
				parts = append(parts, el.String())
				return true
			})
			row[col] = strings.Join(parts, ",")
			continue
		}
		row[col] = v.String()
	}
	return row
}
