package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// searchLog writes one row per evaluation: the averaged run outcome
// followed by one column per configured parameter.
type searchLog struct {
	w     *csv.Writer
	names []string
}

var searchLogColumns = []string{"eval", "fitness", "survived_days", "occupancy", "stability", "great_traits", "extinct_seeds"}

func newSearchLog(w io.Writer, params *ParamVector) (*searchLog, error) {
	l := &searchLog{w: csv.NewWriter(w)}
	for _, spec := range params.Specs {
		l.names = append(l.names, spec.Name)
	}

	header := append(append([]string{}, searchLogColumns...), l.names...)
	if err := l.w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	l.w.Flush()
	return l, l.w.Error()
}

func (l *searchLog) record(eval int, rep Report, values []float64) error {
	row := []string{
		strconv.Itoa(eval),
		fmt.Sprintf("%.4f", rep.Fitness),
		fmt.Sprintf("%.2f", rep.SurvivedDays),
		fmt.Sprintf("%.4f", rep.Occupancy),
		fmt.Sprintf("%.4f", rep.Stability),
		fmt.Sprintf("%.2f", rep.GreatTraits),
		strconv.Itoa(rep.Extinct),
	}
	for _, v := range values {
		row = append(row, fmt.Sprintf("%.4f", v))
	}
	if err := l.w.Write(row); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}
