package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"testing"

	"bvm/internal/bvmenv"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, contents := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip Create: %v", err)
		}
		if _, err := f.Write([]byte(contents)); err != nil {
			t.Fatalf("zip Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip Close: %v", err)
	}
	return buf.Bytes()
}

func buildTarGz(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, contents := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(contents))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar WriteHeader: %v", err)
		}
		if _, err := tw.Write([]byte(contents)); err != nil {
			t.Fatalf("tar Write: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar Close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip Close: %v", err)
	}
	return buf.Bytes()
}

func TestExtractZipWritesEntries(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	data := buildZip(t, map[string]string{"bin/terraform": "binary-contents"})

	if err := Extract(env, TypeZip, data, "/dest", "", bvmenv.NopProgress); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	got, err := env.ReadFile("/dest/bin/terraform")
	if err != nil {
		t.Fatalf("expected the zip entry to be written: %v", err)
	}
	if string(got) != "binary-contents" {
		t.Fatalf("unexpected contents %q", got)
	}
}

func TestExtractZipRejectsPathTraversal(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	data := buildZip(t, map[string]string{"../escape": "x"})

	if err := Extract(env, TypeZip, data, "/dest", "", bvmenv.NopProgress); err == nil {
		t.Fatal("expected an error for a path-traversing zip entry")
	}
}

func TestExtractTarGzWritesEntries(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	data := buildTarGz(t, map[string]string{"bin/terraform": "binary-contents"})

	if err := Extract(env, TypeTarGz, data, "/dest", "", bvmenv.NopProgress); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	got, err := env.ReadFile("/dest/bin/terraform")
	if err != nil {
		t.Fatalf("expected the tar entry to be written: %v", err)
	}
	if string(got) != "binary-contents" {
		t.Fatalf("unexpected contents %q", got)
	}
}

func TestExtractTarGzRejectsPathTraversal(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	data := buildTarGz(t, map[string]string{"../escape": "x"})

	if err := Extract(env, TypeTarGz, data, "/dest", "", bvmenv.NopProgress); err == nil {
		t.Fatal("expected an error for a path-traversing tar entry")
	}
}

func TestExtractBinaryWritesVerbatim(t *testing.T) {
	env := bvmenv.NewTestEnvironment()
	if err := Extract(env, TypeBinary, []byte("raw-bytes"), "/dest", "terraform", bvmenv.NopProgress); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	got, err := env.ReadFile("/dest/terraform")
	if err != nil {
		t.Fatalf("expected the binary to be written: %v", err)
	}
	if string(got) != "raw-bytes" {
		t.Fatalf("unexpected contents %q", got)
	}
}
