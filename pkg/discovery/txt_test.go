package discovery

import (
	"reflect"
	"strings"
	"testing"
)

func TestEndpointTXTValidate(t *testing.T) {
	tests := []struct {
		name    string
		txt     EndpointTXT
		wantErr error
	}{
		{"valid", EndpointTXT{EndpointName: "Studio Synth"}, nil},
		{"with product instance", EndpointTXT{EndpointName: "Synth", ProductInstanceID: "ABC123"}, nil},
		{"empty name", EndpointTXT{}, ErrInvalidEndpointName},
		{"name too long", EndpointTXT{EndpointName: strings.Repeat("x", MaxEndpointNameLength+1)}, ErrInvalidEndpointName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.txt.Validate(); err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEndpointTXTEncode(t *testing.T) {
	txt := EndpointTXT{EndpointName: "Synth", ProductInstanceID: "ABC123"}
	got := txt.Encode()
	want := []string{"UMPEndpointName=Synth", "PIID=ABC123"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Encode() = %v, want %v", got, want)
	}

	txt = EndpointTXT{EndpointName: "Synth"}
	got = txt.Encode()
	want = []string{"UMPEndpointName=Synth"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Encode() = %v, want %v", got, want)
	}
}

func TestEndpointTXTRoundTrip(t *testing.T) {
	txt := EndpointTXT{EndpointName: "Studio Synth", ProductInstanceID: "0011AABB"}
	got := ParseEndpointTXT(ParseTXT(txt.Encode()))
	if got != txt {
		t.Errorf("round trip = %+v, want %+v", got, txt)
	}
}

func TestParseTXT(t *testing.T) {
	tests := []struct {
		name    string
		records []string
		want    map[string]string
	}{
		{
			name:    "basic",
			records: []string{"UMPEndpointName=Synth", "PIID=1"},
			want:    map[string]string{"UMPEndpointName": "Synth", "PIID": "1"},
		},
		{
			name:    "value with equals",
			records: []string{"K=a=b"},
			want:    map[string]string{"K": "a=b"},
		},
		{
			name:    "no value",
			records: []string{"Flag"},
			want:    map[string]string{"Flag": ""},
		},
		{
			name:    "first duplicate wins",
			records: []string{"K=1", "K=2"},
			want:    map[string]string{"K": "1"},
		},
		{
			name:    "empty entries ignored",
			records: []string{"", "=x", "K=1"},
			want:    map[string]string{"K": "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTXT(tt.records); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseTXT() = %v, want %v", got, tt.want)
			}
		})
	}
}
