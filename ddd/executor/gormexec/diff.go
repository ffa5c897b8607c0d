//
// Copyright 2023 Bytedance Ltd. and/or its affiliates
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gormexec

import (
	"database/sql/driver"
	"reflect"

	"gorm.io/gorm/schema"
)

var columnNames = schema.NamingStrategy{IdentifierMaxLength: 64}

var valuerType = reflect.TypeOf((*driver.Valuer)(nil)).Elem()

// equalField compares two values of a model field. Valuers such as
// decimal.Decimal compare by what they write to the database.
func equalField(a, b reflect.Value) bool {
	if !a.Type().Implements(valuerType) {
		return reflect.DeepEqual(a.Interface(), b.Interface())
	}
	if a.Kind() == reflect.Ptr && (a.IsNil() || b.IsNil()) {
		return a.IsNil() == b.IsNil()
	}
	va, errA := a.Interface().(driver.Valuer).Value()
	vb, errB := b.Interface().(driver.Valuer).Value()
	return errA == nil && errB == nil && reflect.DeepEqual(va, vb)
}

func diffFields(curr, prev reflect.Value, prefix string, out []string) []string {
	t := curr.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tags := schema.ParseTagSetting(f.Tag.Get("gorm"), ";")
		if _, ignored := tags["-"]; ignored {
			continue
		}
		a, b := curr.Field(i), prev.Field(i)

		_, embedded := tags["EMBEDDED"]
		if a.Kind() == reflect.Struct && !f.Type.Implements(valuerType) && (f.Anonymous || embedded) {
			out = diffFields(a, b, prefix+tags["EMBEDDEDPREFIX"], out)
			continue
		}
		if equalField(a, b) {
			continue
		}
		column := tags["COLUMN"]
		if column == "" {
			column = columnNames.ColumnName("", f.Name)
		}
		out = append(out, prefix+column)
	}
	return out
}

// DiffModel returns the columns, named as gorm names them, whose values
// differ between curr and prev. Embedded structs are compared field by field.
// It returns nil when the two are not structs of the same type.
func DiffModel(curr, prev interface{}) []string {
	a, b := reflect.Indirect(reflect.ValueOf(curr)), reflect.Indirect(reflect.ValueOf(prev))
	if a.Kind() != reflect.Struct || b.Kind() != reflect.Struct || a.Type() != b.Type() {
		return nil
	}
	return diffFields(a, b, "", []string{})
}
