// Copyright 2025 Magnus Pierre
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

// Package datatable provides a small typed in-memory table used to hold
// measurement metadata rows.
package datatable

import (
	"fmt"
	"strconv"
	"time"
)

// DataType represents the type of data in a column.
type DataType int

const (
	// TypeString represents string data.
	TypeString DataType = iota
	// TypeInt represents integer data, stored as int64.
	TypeInt
	// TypeFloat represents floating-point data, stored as float64.
	TypeFloat
	// TypeBool represents boolean data.
	TypeBool
	// TypeTimestamp represents timestamp data (date + time).
	TypeTimestamp
)

// String returns the string representation of a DataType.
func (dt DataType) String() string {
	switch dt {
	case TypeString:
		return "String"
	case TypeInt:
		return "Int"
	case TypeFloat:
		return "Float"
	case TypeBool:
		return "Bool"
	case TypeTimestamp:
		return "Timestamp"
	default:
		return fmt.Sprintf("Unknown(%d)", dt)
	}
}

// Value is a typed container for cell values.
// It holds the raw value, type information, and a pre-formatted string.
type Value struct {
	// Raw holds the underlying value: string, int64, float64, bool or
	// time.Time depending on Type.
	Raw interface{}

	// Type indicates the data type of this value.
	Type DataType

	// IsNull indicates whether this value is null/nil.
	IsNull bool

	// Formatted is a pre-formatted string representation.
	Formatted string
}

// NewValue creates a Value from a raw Go value, inferring its type.
// Integer kinds are widened to int64 and float32 to float64; anything
// that is not a recognised scalar is stored as its string form.
func NewValue(raw interface{}) Value {
	switch v := raw.(type) {
	case nil:
		return NewNullValue(TypeString)
	case Value:
		return v
	case string:
		return newTyped(v, TypeString)
	case bool:
		return newTyped(v, TypeBool)
	case int:
		return newTyped(int64(v), TypeInt)
	case int8:
		return newTyped(int64(v), TypeInt)
	case int16:
		return newTyped(int64(v), TypeInt)
	case int32:
		return newTyped(int64(v), TypeInt)
	case int64:
		return newTyped(v, TypeInt)
	case uint:
		return newTyped(int64(v), TypeInt)
	case uint8:
		return newTyped(int64(v), TypeInt)
	case uint16:
		return newTyped(int64(v), TypeInt)
	case uint32:
		return newTyped(int64(v), TypeInt)
	case uint64:
		return newTyped(int64(v), TypeInt)
	case float32:
		return newTyped(float64(v), TypeFloat)
	case float64:
		return newTyped(v, TypeFloat)
	case time.Time:
		return newTyped(v, TypeTimestamp)
	default:
		return newTyped(fmt.Sprintf("%v", v), TypeString)
	}
}

func newTyped(raw interface{}, dataType DataType) Value {
	return Value{
		Raw:       raw,
		Type:      dataType,
		Formatted: formatValue(raw, dataType),
	}
}

// NewNullValue creates a null value of the specified type.
func NewNullValue(dataType DataType) Value {
	return Value{
		Raw:    nil,
		Type:   dataType,
		IsNull: true,
	}
}

// formatValue converts a raw value to a formatted string.
func formatValue(raw interface{}, dataType DataType) string {
	if raw == nil {
		return ""
	}

	switch dataType {
	case TypeFloat:
		return strconv.FormatFloat(raw.(float64), 'g', -1, 64)
	case TypeTimestamp:
		return raw.(time.Time).Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", raw)
	}
}

// Key returns a string that is equal for two values exactly when they
// hold the same type and the same value. Nulls of any type share a key.
func (v Value) Key() string {
	if v.IsNull {
		return "\x00null"
	}
	return strconv.Itoa(int(v.Type)) + "\x00" + v.Formatted
}

// Equal reports whether two values are the same typed value.
func (v Value) Equal(other Value) bool {
	return v.Key() == other.Key()
}

// Float returns the value as a float64 for numeric types.
func (v Value) Float() (float64, bool) {
	if v.IsNull {
		return 0, false
	}
	switch v.Type {
	case TypeInt:
		return float64(v.Raw.(int64)), true
	case TypeFloat:
		return v.Raw.(float64), true
	default:
		return 0, false
	}
}

// Interface returns the raw value, or nil when the value is null.
func (v Value) Interface() interface{} {
	if v.IsNull {
		return nil
	}
	return v.Raw
}

// String implements fmt.Stringer.
func (v Value) String() string {
	if v.IsNull {
		return "<null>"
	}
	return v.Formatted
}

// Metadata holds optional metadata about a data source.
type Metadata map[string]interface{}

// Record is one row expressed as column name to raw value.
type Record map[string]interface{}

// Column describes a named, typed column.
type Column struct {
	Name string
	Type DataType
}
