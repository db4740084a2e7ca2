package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/iancoleman/orderedmap"
)

/**
 * StructToOrderedMap 按字段声明顺序把结构体转换为有序map
 * @param {any} v - Struct or pointer to struct, json tags name the keys
 * @returns {*orderedmap.OrderedMap} Ordered record
 * @returns {error} v is not a struct
 */
func StructToOrderedMap(v any) (*orderedmap.OrderedMap, error) {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct, got %s", rv.Kind())
	}
	om := orderedmap.New()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		om.Set(name, rv.Field(i).Interface())
	}
	return om, nil
}

/**
 * PrintFormat 以表格形式输出记录
 * @param {io.Writer} w - Output
 * @param {[]*orderedmap.OrderedMap} records - Rows, the first row decides the columns
 * @returns {error} Write error
 */
func PrintFormat(w io.Writer, records []*orderedmap.OrderedMap) error {
	if len(records) == 0 {
		return nil
	}
	keys := records[0].Keys()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(keys, "\t")))
	for _, rec := range records {
		cols := make([]string, len(keys))
		for i, k := range keys {
			if v, ok := rec.Get(k); ok {
				cols[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
	}
	return tw.Flush()
}

// PrintJson writes records as indented JSON, keeping field order
func PrintJson(w io.Writer, records []*orderedmap.OrderedMap) error {
	if records == nil {
		records = []*orderedmap.OrderedMap{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
