package encoding

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParityMatchesPopcount(t *testing.T) {
	xs := []uint64{0, 1, 2, 3, 0xff, 0x8000000000000001, 0xdeadbeefcafebabe, ^uint64(0)}
	got := ParityBatch(xs)
	for i, x := range xs {
		assert.Equal(t, bits.OnesCount64(x)%2 == 1, got[i], "x=%#x", x)
	}
}

func TestDenseQubitCount(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 2, 4: 3, 7: 3, 8: 4, 15: 4, 16: 5, 100: 7}
	for n, k := range cases {
		d, err := NewDense(n)
		require.NoError(t, err)
		assert.Equal(t, k, d.NumQubits(), "n=%d", n)
		assert.Equal(t, n, d.NumVars())
	}
}

func TestDenseMasksDecodeThemselves(t *testing.T) {
	for n := 1; n <= 64; n++ {
		d, err := NewDense(n)
		require.NoError(t, err)
		masks := d.Masks()

		decoded := d.DecodeBatch(masks)
		for i, m := range masks {
			want := 0.0
			if bits.OnesCount64(m)%2 == 1 {
				want = 1
			}
			assert.Equal(t, want, decoded.At(i, i), "n=%d var=%d", n, i)
		}
	}
}

func TestMasksAreDistinctAndNonZero(t *testing.T) {
	for _, kind := range []Kind{KindDense, KindPoly} {
		enc, err := New(kind, 37)
		require.NoError(t, err)
		seen := map[uint64]bool{}
		for _, m := range enc.Masks() {
			assert.NotZero(t, m)
			assert.False(t, seen[m], "%s mask %#x repeated", kind, m)
			assert.Less(t, m, uint64(1)<<uint(enc.NumQubits()))
			seen[m] = true
		}
	}
}

func TestPolyLayout(t *testing.T) {
	p, err := NewPoly(5)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Side())
	assert.Equal(t, 6, p.NumQubits())
	// variable 4 sits at row 1, column 1
	assert.Equal(t, uint64(1<<1|1<<4), p.Masks()[4])

	// measuring only row qubit 1 flips variables 3 and 4
	got := p.DecodeBits(1 << 1)
	assert.Equal(t, []bool{false, false, false, true, true}, got)

	_, err = NewPoly(33 * 33)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestPauliCorrelations(t *testing.T) {
	d, err := NewDense(3)
	require.NoError(t, err)

	// 0b00 decodes to (0,0,0); 0b01 decodes to (1,0,1)
	corr := d.PauliCorrelations([]uint64{0, 1}, []float64{3, 1})
	assert.InDeltaSlice(t, []float64{0.5, 1, 0.5}, corr, 1e-12)

	zero := d.PauliCorrelations([]uint64{0, 1}, []float64{0, 0})
	assert.Equal(t, []float64{0, 0, 0}, zero)
}

func TestInvalidConstruction(t *testing.T) {
	var verr *ValidationError

	_, err := NewDense(0)
	assert.ErrorAs(t, err, &verr)
	_, err = NewPoly(-1)
	assert.ErrorAs(t, err, &verr)
	_, err = New("sparse", 4)
	assert.ErrorAs(t, err, &verr)
}

func TestCompressionRatio(t *testing.T) {
	d, err := NewDense(15)
	require.NoError(t, err)
	assert.InDelta(t, 3.75, d.CompressionRatio(), 1e-12)
	assert.Contains(t, d.String(), "n_qubits=4")
}
