package repository

import (
	"reflect"
	"strings"

	"github.com/uptrace/bun"

	"github.com/homekeep/homekeep/internal/stringcase"
)

var baseModelType = reflect.TypeOf(bun.BaseModel{})

// entityMeta is the slice of the bun mapping the repository needs: the
// entity's name for error reporting, its primary key column, and the set
// of mapped columns used to skip sorts on unmapped fields.
type entityMeta struct {
	name    string
	pk      string
	columns map[string]struct{}
}

func metaFor(t reflect.Type) entityMeta {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	m := entityMeta{
		name:    stringcase.Snake(t.Name()),
		pk:      "id",
		columns: make(map[string]struct{}),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() || field.Type == baseModelType {
			continue
		}

		tag := field.Tag.Get("bun")
		if tag == "-" {
			continue
		}

		parts := strings.Split(tag, ",")
		column := parts[0]
		if column == "" || strings.Contains(column, ":") {
			column = stringcase.Snake(field.Name)
		}
		m.columns[column] = struct{}{}

		for _, opt := range parts[1:] {
			if opt == "pk" {
				m.pk = column
			}
		}
	}

	return m
}

func (m entityMeta) hasColumn(column string) bool {
	_, ok := m.columns[column]
	return ok
}
