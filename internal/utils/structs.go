package utils

import (
	"fmt"
	"reflect"
)

var ColumnTag = "db"

// StructTagValues returns the column names of a db-tagged struct. Untagged
// embedded structs are flattened, matching how scany maps them.
func StructTagValues(input any) []string {
	value := structValue(input)

	columns := make([]string, 0, value.NumField())
	walkColumns(value, func(column string, _ reflect.Value) {
		columns = append(columns, column)
	})
	return columns
}

// StructToMap maps column name to field value for use with squirrel SetMap.
func StructToMap(input any) map[string]any {
	value := structValue(input)

	result := make(map[string]any, value.NumField())
	walkColumns(value, func(column string, field reflect.Value) {
		result[column] = field.Interface()
	})
	return result
}

// StructToMapExcept is StructToMap without the named columns.
func StructToMapExcept(input any, exclude ...string) map[string]any {
	result := StructToMap(input)
	for _, column := range exclude {
		delete(result, column)
	}
	return result
}

func structValue(input any) reflect.Value {
	value := reflect.ValueOf(input)
	if value.Kind() == reflect.Ptr {
		value = value.Elem()
	}

	if value.Kind() != reflect.Struct {
		panic("input must be a pointer to a struct or a struct")
	}

	return value
}

func walkColumns(value reflect.Value, fn func(column string, field reflect.Value)) {
	valueType := value.Type()

	for i := 0; i < value.NumField(); i++ {
		field := valueType.Field(i)
		tag := field.Tag.Get(ColumnTag)

		if field.Anonymous && tag == "" && field.Type.Kind() == reflect.Struct {
			walkColumns(value.Field(i), fn)
			continue
		}

		if field.PkgPath != "" || tag == "" || tag == "-" {
			continue
		}

		fn(tag, value.Field(i))
	}
}

func ErrorWrapOrNil(err error, msg string) error {
	if err == nil {
		return nil
	}

	if msg == "" {
		return err
	}

	return fmt.Errorf("%s: %w", msg, err)
}
