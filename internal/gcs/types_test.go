package gcs

import "testing"

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		object  string
		wantErr bool
	}{
		{"gs://bucket/path/to/file.csv", "bucket", "path/to/file.csv", false},
		{"gs://bucket/file.xlsx", "bucket", "file.xlsx", false},
		{"gs://bucket", "", "", true},
		{"gs://bucket/", "", "", true},
		{"/local/file.csv", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := ParseURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.bucket || object != tt.object {
				t.Errorf("ParseURI() = %q, %q; want %q, %q", bucket, object, tt.bucket, tt.object)
			}
		})
	}
}

func TestObjectURI(t *testing.T) {
	if got := ObjectURI("b", ObjectName("runs/1", "users.csv")); got != "gs://b/runs/1/users.csv" {
		t.Errorf("ObjectURI() = %s", got)
	}
	if got := ObjectURI("b", ObjectName("", "users.csv")); got != "gs://b/users.csv" {
		t.Errorf("ObjectURI() without prefix = %s", got)
	}
}
