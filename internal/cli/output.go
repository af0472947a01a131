package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// Output печатает результат команды.
//
// Данные (таблицы, JSON) идут в stdout, чтобы их можно было
// передать дальше по конвейеру. Ход выполнения workflows и ошибки
// идут в stderr.
type Output struct {
	jsonMode bool
	data     io.Writer
	messages io.Writer
}

// NewOutput создаёт Output поверх stdout/stderr.
func NewOutput(jsonMode bool) *Output {
	return NewOutputTo(jsonMode, os.Stdout, os.Stderr)
}

// NewOutputTo создаёт Output с заданными потоками данных и сообщений.
func NewOutputTo(jsonMode bool, data, messages io.Writer) *Output {
	return &Output{jsonMode: jsonMode, data: data, messages: messages}
}

// Messages возвращает поток сообщений (его же получают workflows).
func (o *Output) Messages() io.Writer {
	return o.messages
}

// Print выводит данные таблицей, а с --json — как jsonData.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows)
}

// Table выравнивает колонки по самой широкой ячейке.
// Под заголовком — линия из дефисов на всю ширину колонки.
func (o *Output) Table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], len(row[i]))
		}
	}

	rule := make([]string, len(widths))
	for i, n := range widths {
		rule[i] = strings.Repeat("-", n)
	}

	tw := tabwriter.NewWriter(o.data, 0, 0, 2, ' ', 0)
	writeRow(tw, headers)
	writeRow(tw, rule)
	for _, row := range rows {
		writeRow(tw, row)
	}
	if err := tw.Flush(); err != nil {
		o.Error(fmt.Sprintf("write table: %v", err))
	}
}

func writeRow(w io.Writer, cells []string) {
	fmt.Fprintln(w, strings.Join(cells, "\t"))
}

// JSON печатает v с отступом в два пробела.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.data)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		o.Error(fmt.Sprintf("encode output: %v", err))
	}
}

// Success печатает сообщение о ходе выполнения.
func (o *Output) Success(msg string) {
	o.emit("", msg)
}

// Error печатает ошибку с префиксом "Error: ".
func (o *Output) Error(msg string) {
	o.emit("Error: ", msg)
}

func (o *Output) emit(prefix, msg string) {
	fmt.Fprintf(o.messages, "%s%s\n", prefix, msg)
}
