package secop

import (
	"fmt"
	"strings"

	"secop_bot/internal/model"
)

// BuildWhere translates filters into a SoQL $where clause. Supplied
// fields combine with AND; text matching is case-insensitive substring
// containment, done server-side by upper-casing both the column and
// the search literal. Empty or whitespace-only values are skipped.
func BuildWhere(f model.SearchFilters) string {
	var conds []string

	if kw := normalize(f.Keyword); kw != "" {
		lit := escapeLiteral(kw)
		conds = append(conds, fmt.Sprintf(
			"(upper(nombre_del_procedimiento) like '%%%s%%' OR upper(descripci_n_del_procedimiento) like '%%%s%%')",
			lit, lit))
	}

	fields := []struct {
		column string
		value  string
	}{
		{"departamento_entidad", f.Department},
		{"ciudad_entidad", f.Municipality},
		{"modalidad_de_contratacion", f.Modality},
		{"tipo_de_contrato", f.ContractType},
		{"fase", f.Phase},
	}
	for _, fl := range fields {
		if v := normalize(fl.value); v != "" {
			conds = append(conds, fmt.Sprintf("upper(%s) like '%%%s%%'", fl.column, escapeLiteral(v)))
		}
	}

	return strings.Join(conds, " AND ")
}

// normalize trims whitespace and upper-cases the value so that
// server-side matching is case-insensitive.
func normalize(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}

// escapeLiteral doubles single quotes for safe embedding in a SoQL
// string literal.
func escapeLiteral(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}
