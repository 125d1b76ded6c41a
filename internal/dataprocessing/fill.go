package dataprocessing

import (
	"context"
	"time"

	apperrors "covidprep/internal/errors"
)

// CoerceNumeric converts the cells of cols to numbers. Text with no numeric
// reading becomes null and is counted as UNPARSEABLE_VALUE.
func CoerceNumeric(ctx context.Context, t *Table, cols ...string) error {
	if err := t.Require(cols...); err != nil {
		return err
	}
	diag := DiagnosticsFrom(ctx)
	for _, col := range cols {
		i := t.index[col]
		bad := 0
		for _, row := range t.rows {
			v, ok := ToNumeric(row[i])
			if !ok {
				bad++
			}
			row[i] = v
		}
		diag.Record(apperrors.CodeUnparseableValue, col, bad)
	}
	return nil
}

// ForwardFill replaces each null in cols with the nearest preceding non-null
// cell in table order. Leading nulls stay null.
func ForwardFill(ctx context.Context, t *Table, cols ...string) error {
	if err := t.Require(cols...); err != nil {
		return err
	}
	diag := DiagnosticsFrom(ctx)
	for _, col := range cols {
		i := t.index[col]
		filled := 0
		last := NullValue()
		for _, row := range t.rows {
			if row[i].IsNull() {
				if !last.IsNull() {
					row[i] = last
					filled++
				}
				continue
			}
			last = row[i]
		}
		diag.Record(apperrors.CodeFilledValue, col, filled)
	}
	return nil
}

// Interpolate fills nulls in numeric cols linearly, using row position as the
// independent variable. Gaps after the last known value take that value;
// gaps before the first known value stay null.
func Interpolate(ctx context.Context, t *Table, cols ...string) error {
	if err := t.Require(cols...); err != nil {
		return err
	}
	diag := DiagnosticsFrom(ctx)
	for _, col := range cols {
		i := t.index[col]
		filled := 0
		prev := -1
		var prevVal float64
		for r, row := range t.rows {
			y, ok := row[i].Float()
			if !ok {
				continue
			}
			if prev >= 0 && r-prev > 1 {
				step := (y - prevVal) / float64(r-prev)
				for k := prev + 1; k < r; k++ {
					t.rows[k][i] = FloatValue(prevVal + step*float64(k-prev))
					filled++
				}
			}
			prev, prevVal = r, y
		}
		if prev >= 0 {
			for k := prev + 1; k < len(t.rows); k++ {
				t.rows[k][i] = t.rows[prev][i]
				filled++
			}
		}
		diag.Record(apperrors.CodeFilledValue, col, filled)
	}
	return nil
}

// FillNulls replaces every null in cols with v. No cols means every column.
func FillNulls(ctx context.Context, t *Table, v Value, cols ...string) error {
	if len(cols) == 0 {
		cols = t.Columns()
	}
	if err := t.Require(cols...); err != nil {
		return err
	}
	diag := DiagnosticsFrom(ctx)
	for _, col := range cols {
		i := t.index[col]
		filled := 0
		for _, row := range t.rows {
			if row[i].IsNull() {
				row[i] = v
				filled++
			}
		}
		diag.Record(apperrors.CodeFilledValue, col, filled)
	}
	return nil
}

// groupRows returns the row positions of each group, or one group holding
// every row when no group columns are given. Rows with a null key are
// returned separately.
func groupRows(t *Table, groupCols []string) (groups [][]int, nullKey []int, err error) {
	if len(groupCols) == 0 {
		all := make([]int, t.Len())
		for r := range all {
			all[r] = r
		}
		return [][]int{all}, nil, nil
	}
	gs, err := t.Groups(groupCols...)
	if err != nil {
		return nil, nil, err
	}
	for _, g := range gs {
		if g.HasNullKey() {
			nullKey = append(nullKey, g.Rows...)
			continue
		}
		groups = append(groups, g.Rows)
	}
	return groups, nullKey, nil
}

// CumulativeSum writes the running sum of valueCol within each group, in
// table order, to outCol. A null input yields a null output without
// resetting the sum. Sums stay integers while every input is an integer.
// Rows whose group key is null get null.
func CumulativeSum(t *Table, groupCols []string, valueCol, outCol string) error {
	if err := t.Require(valueCol); err != nil {
		return err
	}
	groups, _, err := groupRows(t, groupCols)
	if err != nil {
		return err
	}
	vi := t.index[valueCol]
	out := make([]Value, t.Len())
	for _, rows := range groups {
		var isum int64
		var fsum float64
		allInt := true
		for _, r := range rows {
			v := t.rows[r][vi]
			switch v.Kind() {
			case KindInt:
				n, _ := v.Int()
				isum += n
				fsum += float64(n)
			case KindFloat:
				f, _ := v.Float()
				allInt = false
				fsum += f
			default:
				continue
			}
			if allInt {
				out[r] = IntValue(isum)
			} else {
				out[r] = FloatValue(fsum)
			}
		}
	}
	return t.SetColumn(outCol, out)
}

// Difference writes, per group, the change of valueCol from the previous row
// of the same group. The first row of a group and rows with a null operand get null.
func Difference(t *Table, groupCols []string, valueCol, outCol string) error {
	if err := t.Require(valueCol); err != nil {
		return err
	}
	groups, _, err := groupRows(t, groupCols)
	if err != nil {
		return err
	}
	vi := t.index[valueCol]
	out := make([]Value, t.Len())
	for _, rows := range groups {
		for k := 1; k < len(rows); k++ {
			cur, prev := t.rows[rows[k]][vi], t.rows[rows[k-1]][vi]
			if cur.Kind() == KindInt && prev.Kind() == KindInt {
				a, _ := cur.Int()
				b, _ := prev.Int()
				out[rows[k]] = IntValue(a - b)
				continue
			}
			a, okA := cur.Float()
			b, okB := prev.Float()
			if okA && okB {
				out[rows[k]] = FloatValue(a - b)
			}
		}
	}
	return t.SetColumn(outCol, out)
}

// RollingMean writes the trailing mean of valueCol over the last window rows
// of each group, in table order. A row gets a value only once window
// non-null cells are in its window.
func RollingMean(t *Table, groupCols []string, valueCol, outCol string, window int) error {
	if window < 1 {
		window = 1
	}
	if err := t.Require(valueCol); err != nil {
		return err
	}
	groups, _, err := groupRows(t, groupCols)
	if err != nil {
		return err
	}
	vi := t.index[valueCol]
	out := make([]Value, t.Len())
	for _, rows := range groups {
		for k, r := range rows {
			if k+1 < window {
				continue
			}
			sum, n := 0.0, 0
			for _, w := range rows[k+1-window : k+1] {
				if f, ok := t.rows[w][vi].Float(); ok {
					sum += f
					n++
				}
			}
			if n >= window {
				out[r] = FloatValue(sum / float64(n))
			}
		}
	}
	return t.SetColumn(outCol, out)
}

// RollingMeanByDate writes the mean of valueCol over the rows of the same
// group whose dateCol falls in (date-span, date]. At least minPeriods
// non-null cells are needed for a value.
func RollingMeanByDate(t *Table, groupCols []string, dateCol, valueCol, outCol string, span time.Duration, minPeriods int) error {
	if minPeriods < 1 {
		minPeriods = 1
	}
	if err := t.Require(dateCol, valueCol); err != nil {
		return err
	}
	groups, _, err := groupRows(t, groupCols)
	if err != nil {
		return err
	}
	di, vi := t.index[dateCol], t.index[valueCol]
	out := make([]Value, t.Len())
	for _, rows := range groups {
		for _, r := range rows {
			end, ok := t.rows[r][di].Date()
			if !ok {
				continue
			}
			start := end.Add(-span)
			sum, n := 0.0, 0
			for _, w := range rows {
				d, ok := t.rows[w][di].Date()
				if !ok || !d.After(start) || d.After(end) {
					continue
				}
				if f, ok := t.rows[w][vi].Float(); ok {
					sum += f
					n++
				}
			}
			if n >= minPeriods {
				out[r] = FloatValue(sum / float64(n))
			}
		}
	}
	return t.SetColumn(outCol, out)
}

// Ratio writes num / den × scale to outCol. Null operands give null; a zero
// denominator gives null and is counted as DIVISION_BY_ZERO.
func Ratio(ctx context.Context, t *Table, num, den, outCol string, scale float64) error {
	if err := t.Require(num, den); err != nil {
		return err
	}
	zero := 0
	t.Derive(outCol, func(r RowView) Value {
		n, okN := r.Float(num)
		d, okD := r.Float(den)
		if !okN || !okD {
			return NullValue()
		}
		if d == 0 {
			zero++
			return NullValue()
		}
		return FloatValue(n / d * scale)
	})
	DiagnosticsFrom(ctx).Record(apperrors.CodeDivisionByZero, outCol, zero)
	return nil
}

// ParseDates converts col with parse. Cells that fail to parse become null
// and are counted as UNPARSEABLE_VALUE; null cells stay null.
func ParseDates(ctx context.Context, t *Table, col, outCol string, parse func(Value) (time.Time, error)) error {
	if err := t.Require(col); err != nil {
		return err
	}
	bad := 0
	t.Derive(outCol, func(r RowView) Value {
		v := r.Get(col)
		if v.IsNull() {
			return NullValue()
		}
		if _, ok := v.Date(); ok {
			return v
		}
		d, err := parse(v)
		if err != nil {
			bad++
			return NullValue()
		}
		return DateValue(d)
	})
	DiagnosticsFrom(ctx).Record(apperrors.CodeUnparseableValue, col, bad)
	return nil
}
