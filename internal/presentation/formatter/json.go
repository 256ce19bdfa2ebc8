package formatter

import (
	"io"

	"github.com/bytedance/sonic"
)

type JSONFormatter struct {
	w io.Writer
}

func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{w: w}
}

func (f *JSONFormatter) Format(report *Report) error {
	data, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = f.w.Write(data)
	return err
}
