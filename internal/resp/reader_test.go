package resp_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/eternalApril/moonstone/internal/resp"
)

func TestReadInt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr error
	}{
		{
			name:    "Valid positive",
			input:   ":1000\r\n",
			want:    1000,
			wantErr: nil,
		},
		{
			name:    "Valid positive with +",
			input:   ":+1230\r\n",
			want:    1230,
			wantErr: nil,
		},
		{
			name:    "Valid negative",
			input:   ":-15\r\n",
			want:    -15,
			wantErr: nil,
		},
		{
			name:    "Valid zero",
			input:   ":0\r\n",
			want:    0,
			wantErr: nil,
		},
		{
			name:    "Invalid ending",
			input:   ":1000\n",
			want:    0,
			wantErr: resp.ErrInvalidEnding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := resp.NewDecoder(strings.NewReader(tt.input))

			val, err := d.Read()

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Read() expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Errorf("Read() unexpected error %v", err)
			}

			if val.Type != resp.TypeInteger {
				t.Errorf("Read() type = %v, want %v", val.Type, resp.TypeInteger)
			}

			if val.Integer != tt.want {
				t.Errorf("Read() integer = %v, want %v", val.Integer, tt.want)
			}
		})
	}
}

func TestReadBulkString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     string
		wantNull bool
	}{
		{
			name:  "Simple value",
			input: "$5\r\nhello\r\n",
			want:  "hello",
		},
		{
			name:  "Empty value",
			input: "$0\r\n\r\n",
			want:  "",
		},
		{
			name:  "Value with CRLF inside",
			input: "$7\r\nab\r\ncde\r\n",
			want:  "ab\r\ncde",
		},
		{
			name:     "Null bulk string",
			input:    "$-1\r\n",
			wantNull: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := resp.NewDecoder(strings.NewReader(tt.input))

			val, err := d.Read()
			if err != nil {
				t.Fatalf("Read() unexpected error %v", err)
			}

			if val.Type != resp.TypeBulkString {
				t.Errorf("Read() type = %v, want %v", val.Type, resp.TypeBulkString)
			}

			if val.IsNull != tt.wantNull {
				t.Errorf("Read() IsNull = %v, want %v", val.IsNull, tt.wantNull)
			}

			if !tt.wantNull && string(val.String) != tt.want {
				t.Errorf("Read() string = %q, want %q", val.String, tt.want)
			}
		})
	}
}

func TestReadArray(t *testing.T) {
	input := "*3\r\n$3\r\nSET\r\n$3\r\nkey\r\n:42\r\n"
	d := resp.NewDecoder(strings.NewReader(input))

	val, err := d.Read()
	if err != nil {
		t.Fatalf("Read() unexpected error %v", err)
	}

	if val.Type != resp.TypeArray {
		t.Fatalf("Read() type = %v, want %v", val.Type, resp.TypeArray)
	}

	if len(val.Array) != 3 {
		t.Fatalf("Read() array length = %d, want 3", len(val.Array))
	}

	if string(val.Array[0].String) != "SET" {
		t.Errorf("element 0 = %q, want SET", val.Array[0].String)
	}
	if string(val.Array[1].String) != "key" {
		t.Errorf("element 1 = %q, want key", val.Array[1].String)
	}
	if val.Array[2].Integer != 42 {
		t.Errorf("element 2 = %d, want 42", val.Array[2].Integer)
	}
}

func TestReadNullArray(t *testing.T) {
	d := resp.NewDecoder(strings.NewReader("*-1\r\n"))

	val, err := d.Read()
	if err != nil {
		t.Fatalf("Read() unexpected error %v", err)
	}

	if val.Type != resp.TypeArray || !val.IsNull {
		t.Errorf("Read() = %+v, want null array", val)
	}
}

func TestRoundTripCommand(t *testing.T) {
	payload, err := resp.SerializeCommand("LPUSH", []resp.Value{
		resp.MakeBulkString("mylist"),
		resp.MakeBulkString("a"),
		resp.MakeBulkString("b"),
	})
	if err != nil {
		t.Fatalf("SerializeCommand() failed: %v", err)
	}

	d := resp.NewDecoder(strings.NewReader(string(payload)))
	val, err := d.Read()
	if err != nil {
		t.Fatalf("Read() unexpected error %v", err)
	}

	if len(val.Array) != 4 {
		t.Fatalf("array length = %d, want 4", len(val.Array))
	}
	if string(val.Array[0].String) != "LPUSH" {
		t.Errorf("element 0 = %q, want LPUSH", val.Array[0].String)
	}
}
