package resp

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var (
	ErrInvalidEnding = errors.New("invalid line ending")
)

// Decoder reads RESP values from an input stream
type Decoder struct {
	rd *bufio.Reader
}

func NewDecoder(rd io.Reader) *Decoder {
	return &Decoder{rd: bufio.NewReader(rd)}
}

// Buffered returns the number of bytes that can be read from the current buffer
func (d *Decoder) Buffered() int {
	return d.rd.Buffered()
}

// Read decodes the next RESP value from the stream
func (d *Decoder) Read() (Value, error) {
	_type, err := d.rd.ReadByte()
	if err != nil {
		return Value{}, err
	}

	val := Value{
		Type: _type,
	}

	switch val.Type {
	case TypeSimpleString, TypeError:
		str, err := d.readLine()
		if err != nil {
			return Value{}, err
		}

		val.String = str
		return val, nil

	case TypeInteger:
		num, err := d.readInteger()
		if err != nil {
			return Value{}, err
		}

		val.Integer = num
		return val, nil

	case TypeBulkString:
		return d.readBulkString()

	case TypeArray:
		return d.readArray()
	}

	return Value{}, fmt.Errorf("unexpected type: %q", _type)
}

// readLine reads bytes up to CRLF, the terminator excluded
func (d *Decoder) readLine() ([]byte, error) {
	line, err := d.rd.ReadBytes('\n')
	if err != nil {
		return nil, err
	}

	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, ErrInvalidEnding
	}

	return line[:len(line)-2], nil
}

func (d *Decoder) readInteger() (int64, error) {
	line, err := d.readLine()
	if err != nil {
		return 0, err
	}

	// Command with integer cant be empty
	if len(line) == 0 {
		return 0, ErrInvalidEnding
	}

	num, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil {
		return 0, err
	}

	return num, nil
}

// readBulkString reads the length header, then exactly that many bytes plus CRLF.
// Length -1 denotes the null bulk string
func (d *Decoder) readBulkString() (Value, error) {
	length, err := d.readInteger()
	if err != nil {
		return Value{}, err
	}

	if length == -1 {
		return MakeNilBulkString(), nil
	}

	if length < 0 {
		return Value{}, fmt.Errorf("invalid bulk string length: %d", length)
	}

	buf := make([]byte, length+2)
	if _, err := io.ReadFull(d.rd, buf); err != nil {
		return Value{}, err
	}

	if buf[length] != '\r' || buf[length+1] != '\n' {
		return Value{}, ErrInvalidEnding
	}

	return Value{
		Type:   TypeBulkString,
		String: buf[:length],
	}, nil
}

// readArray reads the element count, then that many nested values.
// Count -1 denotes the null array
func (d *Decoder) readArray() (Value, error) {
	count, err := d.readInteger()
	if err != nil {
		return Value{}, err
	}

	if count == -1 {
		return Value{
			Type:   TypeArray,
			IsNull: true,
		}, nil
	}

	if count < 0 {
		return Value{}, fmt.Errorf("invalid array length: %d", count)
	}

	elements := make([]Value, 0, count)
	for i := int64(0); i < count; i++ {
		el, err := d.Read()
		if err != nil {
			return Value{}, err
		}
		elements = append(elements, el)
	}

	return MakeArray(elements), nil
}
