package pipeline

import (
	"errors"
	"fmt"

	"github.com/jgoulah/gridconvert/internal/detect"
	"github.com/jgoulah/gridconvert/internal/loader"
	"github.com/jgoulah/gridconvert/internal/series"
)

// Advisory is a recoverable problem with one file or column
type Advisory struct {
	File   string
	Column string
	Err    error
}

var advisoryKinds = []struct {
	err  error
	kind string
}{
	{loader.ErrUnsupportedFileType, "UnsupportedFileType"},
	{loader.ErrEmptyFile, "EmptyFile"},
	{detect.ErrNoConsumptionColumn, "NoConsumptionColumn"},
	{detect.ErrColumnNotFound, "ColumnNotFound"},
	{series.ErrEmptyGrid, "EmptyGrid"},
	{series.ErrGridTooLarge, "GridTooLarge"},
}

// Kind names the class of problem
func (a Advisory) Kind() string {
	for _, k := range advisoryKinds {
		if errors.Is(a.Err, k.err) {
			return k.kind
		}
	}
	return "Unreadable"
}

func (a Advisory) String() string {
	if a.Column != "" {
		return fmt.Sprintf("%s [%s] %s: %v", a.File, a.Column, a.Kind(), a.Err)
	}
	return fmt.Sprintf("%s %s: %v", a.File, a.Kind(), a.Err)
}
