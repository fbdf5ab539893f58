package sheet

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"splitledger/internal/core"
)

// Column order of the expenses worksheet. Fixed; the header row is
// rewritten whenever it drifts.
var expenseHeaders = []string{
	"id", "amount", "payer", "participants", "category",
	"description", "unit", "shares_json", "date",
}

var metaHeaders = []string{"key", "value"}

// expenseToRow serializes an expense into one worksheet row. Composite
// values go into their cell as JSON; everything is written as plain
// text so user content is never interpreted as a formula.
func expenseToRow(e core.Expense) ([]interface{}, error) {
	participants, err := json.Marshal(e.Participants)
	if err != nil {
		return nil, fmt.Errorf("encode participants: %w", err)
	}
	shares := []byte("{}")
	if len(e.Shares) > 0 {
		shares, err = json.Marshal(e.Shares)
		if err != nil {
			return nil, fmt.Errorf("encode shares: %w", err)
		}
	}
	return []interface{}{
		strconv.FormatInt(e.ID, 10),
		core.FormatAmount(e.Amount),
		e.Payer,
		string(participants),
		e.Category,
		e.Description,
		e.Unit,
		string(shares),
		e.Date.String(),
	}, nil
}

// rowToExpense parses one worksheet row. Ids and amounts must parse;
// a sheet edited by hand can carry sloppy participant cells (comma
// separated instead of JSON) and bad dates, which are tolerated the
// way the UI always tolerated them.
func rowToExpense(cols []string) (core.Expense, error) {
	get := func(i int) string {
		if i < len(cols) {
			return strings.TrimSpace(cols[i])
		}
		return ""
	}

	id, err := strconv.ParseInt(get(0), 10, 64)
	if err != nil || id <= 0 {
		return core.Expense{}, fmt.Errorf("bad id %q", get(0))
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(get(1), ",", "."))
	if err != nil {
		return core.Expense{}, fmt.Errorf("bad amount %q", get(1))
	}
	shares, err := parseShares(get(7))
	if err != nil {
		return core.Expense{}, fmt.Errorf("bad shares %q", get(7))
	}
	date, err := core.ParseDate(get(8))
	if err != nil {
		date = core.Date{}
	}
	unit := get(6)
	if unit == "" {
		unit = core.DefaultUnit
	}
	return core.Expense{
		ID:           id,
		Amount:       amount,
		Payer:        get(2),
		Participants: parseList(get(3)),
		Category:     get(4),
		Description:  get(5),
		Unit:         unit,
		Shares:       shares,
		Date:         date,
	}, nil
}

// parseList accepts a JSON array or a comma-separated fallback.
func parseList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var parsed []string
	if err := json.Unmarshal([]byte(s), &parsed); err == nil {
		out := parsed[:0]
		for _, v := range parsed {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
		return out
	}
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseShares(s string) (map[string]decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "{}" {
		return nil, nil
	}
	shares := map[string]decimal.Decimal{}
	if err := json.Unmarshal([]byte(s), &shares); err != nil {
		return nil, err
	}
	if len(shares) == 0 {
		return nil, nil
	}
	return shares, nil
}

// metaFromRows extracts metadata from key/value rows. found reports
// whether a next_id row was present at all.
func metaFromRows(values [][]interface{}) (meta core.Meta, found bool, err error) {
	for _, row := range values {
		cols := toStrings(row)
		if len(cols) == 0 || cols[0] == "" {
			continue
		}
		value := ""
		if len(cols) > 1 {
			value = cols[1]
		}
		switch cols[0] {
		case "next_id":
			id, perr := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if perr != nil || id < 1 {
				return core.Meta{}, false, fmt.Errorf("bad next_id %q", value)
			}
			meta.NextID = id
			found = true
		case "categories":
			meta.Categories = parseList(value)
		}
	}
	return meta, found, nil
}

func metaToRows(meta core.Meta) ([][]interface{}, error) {
	categories, err := json.Marshal(meta.Categories)
	if err != nil {
		return nil, fmt.Errorf("encode categories: %w", err)
	}
	return [][]interface{}{
		{"next_id", strconv.FormatInt(meta.NextID, 10)},
		{"categories", string(categories)},
	}, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isBlankRow(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}

// rowFromRange extracts the row number from an A1 range reference like
// "expenses!A7:I7", as returned by an append call.
func rowFromRange(ref string) (int64, error) {
	if i := strings.IndexByte(ref, '!'); i >= 0 {
		ref = ref[i+1:]
	}
	if i := strings.IndexByte(ref, ':'); i >= 0 {
		ref = ref[:i]
	}
	digits := strings.TrimLeft(ref, "ABCDEFGHIJKLMNOPQRSTUVWXYZ$")
	row, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || row < 1 {
		return 0, fmt.Errorf("cannot parse row from range %q", ref)
	}
	return row, nil
}
