package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

func (l *loader) LoadOBJ(path string) ([]Face, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open OBJ file %s: %w", path, err)
	}
	defer file.Close()

	faces, err := parseOBJ(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OBJ file %s: %w", path, err)
	}
	return faces, nil
}

// parseOBJ reads Wavefront OBJ records from a stream. Only the geometry
// records are interpreted: v, vt, vn and f. Face corners are 1-based
// v/vt/vn index triplets (negative indices count back from the end);
// polygons with more than three corners are fan triangulated around the
// first corner.
func parseOBJ(r io.Reader) ([]Face, error) {
	var (
		positions [][3]float32
		texCoords [][2]float32
		normals   [][3]float32
		faces     []Face
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			p, err := parseFloats3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid vertex record: %w", lineNo, err)
			}
			positions = append(positions, p)
		case "vt":
			if len(fields) < 3 {
				return nil, fmt.Errorf("line %d: texture coordinate record needs at least 2 components", lineNo)
			}
			u, err1 := strconv.ParseFloat(fields[1], 32)
			v, err2 := strconv.ParseFloat(fields[2], 32)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("line %d: invalid texture coordinate record", lineNo)
			}
			texCoords = append(texCoords, [2]float32{float32(u), float32(v)})
		case "vn":
			n, err := parseFloats3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid normal record: %w", lineNo, err)
			}
			normals = append(normals, n)
		case "f":
			corners := fields[1:]
			if len(corners) < 3 {
				return nil, fmt.Errorf("line %d: face needs at least 3 corners", lineNo)
			}
			verts := make([]Vertex, len(corners))
			for i, corner := range corners {
				v, err := resolveCorner(corner, positions, texCoords, normals)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				verts[i] = v
			}
			for i := 1; i+1 < len(verts); i++ {
				faces = append(faces, Face{verts[0], verts[i], verts[i+1]})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed reading OBJ stream: %w", err)
	}

	return faces, nil
}

func parseFloats3(fields []string) ([3]float32, error) {
	var out [3]float32
	if len(fields) < 3 {
		return out, fmt.Errorf("expected 3 components, got %d", len(fields))
	}
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return out, fmt.Errorf("component %d: %w", i, err)
		}
		out[i] = float32(v)
	}
	return out, nil
}

// resolveCorner turns one face corner (v, v/vt, v//vn or v/vt/vn) into a
// Vertex. Missing texture-coordinate or normal references stay zero.
func resolveCorner(corner string, positions [][3]float32, texCoords [][2]float32, normals [][3]float32) (Vertex, error) {
	var v Vertex

	parts := strings.Split(corner, "/")
	if len(parts) > 3 {
		return v, fmt.Errorf("malformed face corner %q", corner)
	}

	posIdx, err := resolveIndex(parts[0], len(positions))
	if err != nil {
		return v, fmt.Errorf("face corner %q: vertex index: %w", corner, err)
	}
	v.Position = positions[posIdx]

	if len(parts) > 1 && parts[1] != "" {
		tcIdx, err := resolveIndex(parts[1], len(texCoords))
		if err != nil {
			return v, fmt.Errorf("face corner %q: texture coordinate index: %w", corner, err)
		}
		v.TexCoord = texCoords[tcIdx]
	}

	if len(parts) > 2 && parts[2] != "" {
		nIdx, err := resolveIndex(parts[2], len(normals))
		if err != nil {
			return v, fmt.Errorf("face corner %q: normal index: %w", corner, err)
		}
		v.Normal = normals[nIdx]
	}

	return v, nil
}

// resolveIndex converts a 1-based OBJ index (or a negative index counting
// back from the end) into a 0-based slice index.
func resolveIndex(field string, count int) (int, error) {
	idx, err := strconv.Atoi(field)
	if err != nil {
		return 0, err
	}
	switch {
	case idx > 0:
		idx--
	case idx < 0:
		idx = count + idx
	default:
		return 0, fmt.Errorf("index 0 is not valid")
	}
	if idx < 0 || idx >= count {
		return 0, fmt.Errorf("index %s out of range (have %d)", field, count)
	}
	return idx, nil
}
