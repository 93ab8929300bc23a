package cache

import (
	"reflect"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns cached values into the bytes a Store keeps.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// MsgpackCodec encodes values with MessagePack. Fields follow their msgpack
// tags, falling back to the Go field name.
type MsgpackCodec struct{}

// NewMsgpackCodec returns the default codec.
func NewMsgpackCodec() Codec {
	return MsgpackCodec{}
}

func (MsgpackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Unmarshal decodes data into v. MessagePack timestamps carry no zone and
// decode in time.Local, so every reachable time is moved back to UTC.
func (MsgpackCodec) Unmarshal(data []byte, v any) error {
	if err := msgpack.Unmarshal(data, v); err != nil {
		return err
	}
	toUTC(reflect.ValueOf(v))
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

func toUTC(v reflect.Value) {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if !v.IsNil() {
			toUTC(v.Elem())
		}
	case reflect.Struct:
		if v.Type() == timeType {
			if v.CanSet() {
				v.Set(reflect.ValueOf(v.Interface().(time.Time).UTC()))
			}
			return
		}
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				toUTC(v.Field(i))
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			toUTC(v.Index(i))
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			elem := reflect.New(v.Type().Elem()).Elem()
			elem.Set(iter.Value())
			toUTC(elem)
			v.SetMapIndex(iter.Key(), elem)
		}
	}
}
