package store

import (
	"fmt"

	"github.com/roach88/odatacriteria/internal/ir"
)

// marshalQuery converts the query tree to canonical JSON TEXT for storage.
func marshalQuery(q ir.IRObject) (string, error) {
	if q == nil {
		q = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(q)
	if err != nil {
		return "", fmt.Errorf("marshal query: %w", err)
	}
	return string(data), nil
}

// marshalParams converts bound parameters to canonical JSON TEXT.
func marshalParams(params ir.IRArray) (string, error) {
	if params == nil {
		params = ir.IRArray{}
	}
	data, err := ir.MarshalCanonical(params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

func unmarshalQuery(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	v, err := ir.UnmarshalIR([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal query: %w", err)
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("unmarshal query: expected object, got %T", v)
	}
	return obj, nil
}

func unmarshalParams(data string) (ir.IRArray, error) {
	if data == "" || data == "[]" {
		return ir.IRArray{}, nil
	}
	v, err := ir.UnmarshalIR([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	arr, ok := v.(ir.IRArray)
	if !ok {
		return nil, fmt.Errorf("unmarshal params: expected array, got %T", v)
	}
	return arr, nil
}
