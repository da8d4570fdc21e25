package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseOBJTriangle(t *testing.T) {
	src := `# simple triangle
v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vt 1 0
vt 0 1
vn 0 0 1
f 1/1/1 2/2/1 3/3/1
`
	faces, err := parseOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("expected 1 face; got %d", len(faces))
	}

	face := faces[0]
	if face[1].Position != [3]float32{1, 0, 0} {
		t.Fatalf("expected corner 1 position [1 0 0]; got %v", face[1].Position)
	}
	if face[2].TexCoord != [2]float32{0, 1} {
		t.Fatalf("expected corner 2 texcoord [0 1]; got %v", face[2].TexCoord)
	}
	for i, v := range face {
		if v.Normal != [3]float32{0, 0, 1} {
			t.Fatalf("expected corner %d normal [0 0 1]; got %v", i, v.Normal)
		}
	}
}

func TestParseOBJQuadTriangulation(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
f 1 2 3 4
`
	faces, err := parseOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(faces) != 2 {
		t.Fatalf("expected quad to triangulate into 2 faces; got %d", len(faces))
	}

	// Fan triangulation keeps the first vertex as the shared anchor.
	if faces[0][0].Position != faces[1][0].Position {
		t.Fatalf("expected both triangles to share the anchor vertex; got %v and %v", faces[0][0].Position, faces[1][0].Position)
	}
	if faces[1][1].Position != [3]float32{1, 1, 0} {
		t.Fatalf("expected second triangle to start at corner 3; got %v", faces[1][1].Position)
	}
}

func TestParseOBJNegativeIndices(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 0 1 0
f -3 -2 -1
`
	faces, err := parseOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("expected 1 face; got %d", len(faces))
	}
	if faces[0][2].Position != [3]float32{0, 1, 0} {
		t.Fatalf("expected last corner [0 1 0]; got %v", faces[0][2].Position)
	}
}

func TestParseOBJErrors(t *testing.T) {
	specs := []struct {
		descr string
		src   string
		want  string
	}{
		{
			descr: "face before any vertex",
			src:   "f 1 2 3\n",
			want:  "line 1",
		},
		{
			descr: "vertex index out of range",
			src:   "v 0 0 0\nf 1 2 3\n",
			want:  "line 2",
		},
		{
			descr: "zero index",
			src:   "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n",
			want:  "line 4",
		},
		{
			descr: "malformed position",
			src:   "v 0 zero 0\n",
			want:  "line 1",
		},
		{
			descr: "face with two corners",
			src:   "v 0 0 0\nv 1 0 0\nf 1 2\n",
			want:  "line 3",
		},
	}

	for _, spec := range specs {
		_, err := parseOBJ(strings.NewReader(spec.src))
		if err == nil {
			t.Fatalf("%s: expected an error", spec.descr)
		}
		if !strings.Contains(err.Error(), spec.want) {
			t.Fatalf("%s: expected error to mention %q; got %v", spec.descr, spec.want, err)
		}
	}
}

func TestLoadOBJFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tri.obj")
	src := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	ld := NewLoader()
	faces, err := ld.LoadOBJ(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(faces) != 1 {
		t.Fatalf("expected 1 face; got %d", len(faces))
	}

	if _, err := ld.LoadOBJ(filepath.Join(dir, "missing.obj")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
