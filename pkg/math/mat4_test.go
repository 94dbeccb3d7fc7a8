package math

import (
	"math"
	"testing"
)

func TestIdentity(t *testing.T) {
	m := Identity()
	// Diagonal should be 1
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Error("Identity diagonal should be 1")
	}
	// Off-diagonal should be 0
	if m[1] != 0 || m[4] != 0 {
		t.Error("Identity off-diagonal should be 0")
	}
}

func TestMulIdentity(t *testing.T) {
	m := translate(1, 2, 3)
	id := Identity()
	result := m.Mul(id)

	for i := 0; i < 16; i++ {
		if result[i] != m[i] {
			t.Errorf("M * I should equal M, element %d: got %f, want %f", i, result[i], m[i])
		}
	}
}

func TestTransformPoint(t *testing.T) {
	// Translate by (10, 20, 30)
	m := translate(10, 20, 30)
	p := [3]float32{1, 2, 3}
	result := m.TransformPoint(p)

	expected := [3]float32{11, 22, 33}
	if result != expected {
		t.Errorf("TransformPoint: got %v, want %v", result, expected)
	}
}

func TestTransformPointScale(t *testing.T) {
	m := scale(2, 2, 2)
	p := [3]float32{1, 2, 3}
	result := m.TransformPoint(p)

	expected := [3]float32{2, 4, 6}
	if result != expected {
		t.Errorf("TransformPoint with scale: got %v, want %v", result, expected)
	}
}

func TestPerspective(t *testing.T) {
	fov := float32(math.Pi / 4) // 45 degrees
	aspect := float32(1.0)
	near := float32(0.1)
	far := float32(100.0)

	m := Perspective(fov, aspect, near, far)

	// Should be a valid projection matrix (not identity)
	if m[0] == 0 || m[5] == 0 {
		t.Error("Perspective should have non-zero elements")
	}
	// Element [15] should be 0 for perspective projection
	if m[15] != 0 {
		t.Errorf("Perspective [15] should be 0, got %f", m[15])
	}
	// Element [11] should be -1 for perspective projection
	if m[11] != -1 {
		t.Errorf("Perspective [11] should be -1, got %f", m[11])
	}
}

func TestLookAt(t *testing.T) {
	eye := Vec3{0, 0, 5}
	center := Vec3{0, 0, 0}
	up := Vec3{0, 1, 0}

	m := LookAt(eye, center, up)

	// Transform eye position - should result in origin (or close to it)
	// This is a simple sanity check
	if m[15] != 1 {
		t.Errorf("LookAt [15] should be 1, got %f", m[15])
	}
}

func TestFromTRS(t *testing.T) {
	m := FromTRS(Vec3{1, 2, 3}, QuatIdentity(), Vec3{2, 2, 2})
	got := m.TransformPoint([3]float32{1, 1, 1})

	expected := [3]float32{3, 4, 5}
	if got != expected {
		t.Errorf("FromTRS: got %v, want %v", got, expected)
	}
}

func TestFromTRSMatchesComposition(t *testing.T) {
	tr := Vec3{4, -1, 2}
	r := QuatFromAxisAngle(Vec3{Y: 1}, 0.7)
	s := Vec3{1, 3, 0.5}

	got := FromTRS(tr, r, s)
	want := translate(tr.X, tr.Y, tr.Z).Mul(r.ToMat4()).Mul(scale(s.X, s.Y, s.Z))
	for i := 0; i < 16; i++ {
		if abs(got[i]-want[i]) > 0.0001 {
			t.Errorf("element %d: got %f, want %f", i, got[i], want[i])
		}
	}
}

func TestInverse(t *testing.T) {
	m := FromTRS(Vec3{3, 0, -2}, QuatFromAxisAngle(Vec3{X: 1}, 1.2), Vec3{2, 2, 2})
	result := m.Mul(m.Inverse())

	id := Identity()
	for i := 0; i < 16; i++ {
		if abs(result[i]-id[i]) > 0.0001 {
			t.Errorf("M * M^-1 element %d: got %f, want %f", i, result[i], id[i])
		}
	}
}

func TestFromColumns(t *testing.T) {
	m := FromColumns([4][4]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{7, 8, 9, 1},
	})
	if got := m.Translation(); got != (Vec3{7, 8, 9}) {
		t.Errorf("FromColumns translation: got %v, want (7, 8, 9)", got)
	}
}

func TestNormalMatrixUniformScale(t *testing.T) {
	n := scale(2, 2, 2).NormalMatrix()
	if abs(n[0]-0.5) > 0.0001 || abs(n[4]-0.5) > 0.0001 || abs(n[8]-0.5) > 0.0001 {
		t.Errorf("NormalMatrix diagonal: got (%f, %f, %f), want 0.5", n[0], n[4], n[8])
	}
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func translate(x, y, z float32) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = x, y, z
	return m
}

func scale(x, y, z float32) Mat4 {
	m := Identity()
	m[0], m[5], m[10] = x, y, z
	return m
}
