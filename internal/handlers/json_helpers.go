package handlers

import (
	"encoding/json"
	"net/http"
	"reflect"
	"time"
)

// JSONResponse encodes data as JSON with nil slices normalized to empty
// arrays. Match results and coverage reports carry many optional slices, and
// clients expect [] rather than null for every one of them.
func JSONResponse(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(emptySlices(data))
}

var timeType = reflect.TypeOf(time.Time{})

// emptySlices walks data and replaces every nil slice with an empty one.
// time.Time values are copied as-is so their unexported fields survive.
func emptySlices(data interface{}) interface{} {
	if data == nil {
		return data
	}

	v := reflect.ValueOf(data)

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() || v.Elem().Type() == timeType {
			return data
		}
		out := reflect.New(v.Elem().Type())
		out.Elem().Set(reflect.ValueOf(emptySlices(v.Elem().Interface())))
		return out.Interface()

	case reflect.Slice:
		if v.IsNil() {
			return reflect.MakeSlice(v.Type(), 0, 0).Interface()
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(reflect.ValueOf(emptySlices(v.Index(i).Interface())))
		}
		return out.Interface()

	case reflect.Struct:
		if v.Type() == timeType {
			return data
		}
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			field := v.Field(i)
			if !field.CanInterface() || !out.Field(i).CanSet() {
				continue
			}
			ft := field.Type()
			isTime := ft == timeType || (ft.Kind() == reflect.Ptr && ft.Elem() == timeType)
			switch {
			case isTime:
				out.Field(i).Set(field)
			case field.Kind() == reflect.Slice || field.Kind() == reflect.Ptr || field.Kind() == reflect.Struct:
				out.Field(i).Set(reflect.ValueOf(emptySlices(field.Interface())))
			default:
				out.Field(i).Set(field)
			}
		}
		return out.Interface()
	}

	return data
}
