package decompress

import (
	"bytes"
	"encoding/binary"
	"io"
	"math/rand"
	"testing"

	"github.com/crazy-max/unpayload/internal/testutil"
	"github.com/crazy-max/unpayload/pkg/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closeCounter records how many times the wrapped source is released
type closeCounter struct {
	*source.Memory
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return c.Memory.Close()
}

func payload(n int) []byte {
	rnd := rand.New(rand.NewSource(42))
	p := make([]byte, n)
	for i := range p {
		// compressible but not trivial
		p[i] = byte('a' + rnd.Intn(6))
	}
	return p
}

func TestParseCodec(t *testing.T) {
	testCases := []struct {
		name     string
		expected Codec
		wantErr  bool
	}{
		{name: "", expected: DefaultCodec},
		{name: "deflate", expected: Deflate},
		{name: "zlib", expected: Deflate},
		{name: " LZMA ", expected: LZMA},
		{name: "zstd", wantErr: true},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			codec, err := ParseCodec(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, codec)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	plain := payload(100 * 1024)
	testCases := []struct {
		desc  string
		codec Codec
		data  []byte
	}{
		{desc: "deflate", codec: Deflate, data: testutil.Zlib(t, plain)},
		{desc: "lzma sized", codec: LZMA, data: testutil.LZMA(t, plain)},
		{desc: "lzma eos marker", codec: LZMA, data: testutil.LZMAStream(t, plain)},
	}
	for _, tt := range testCases {
		t.Run(tt.desc, func(t *testing.T) {
			src, err := New(tt.codec, source.NewMemory(tt.data))
			require.NoError(t, err)
			defer src.Close()

			var out bytes.Buffer
			buf := make([]byte, 3000)
			for {
				n, err := src.Read(buf)
				out.Write(buf[:n])
				if err == io.EOF {
					break
				}
				require.NoError(t, err)
			}
			assert.True(t, bytes.Equal(plain, out.Bytes()))
			assert.Equal(t, int64(len(plain)), src.Pos())
		})
	}
}

func TestReadFillsBuffer(t *testing.T) {
	plain := payload(50 * 1024)
	for _, codec := range []Codec{Deflate, LZMA} {
		t.Run(string(codec), func(t *testing.T) {
			var data []byte
			if codec == Deflate {
				data = testutil.Zlib(t, plain)
			} else {
				data = testutil.LZMA(t, plain)
			}
			src, err := New(codec, source.NewMemory(data))
			require.NoError(t, err)
			defer src.Close()

			buf := make([]byte, 20*1024)
			n, err := src.Read(buf)
			require.NoError(t, err)
			assert.Equal(t, len(buf), n)
			n, err = src.Read(buf)
			require.NoError(t, err)
			assert.Equal(t, len(buf), n)

			// terminal short read
			n, err = src.Read(buf)
			require.NoError(t, err)
			assert.Equal(t, 10*1024, n)

			n, err = src.Read(buf)
			assert.Equal(t, 0, n)
			assert.Equal(t, io.EOF, err)
		})
	}
}

func TestDeflateReleasesInputOnStreamEnd(t *testing.T) {
	plain := []byte("hello hello hello")
	input := &closeCounter{Memory: source.NewMemory(testutil.Zlib(t, plain))}

	d, err := NewDeflate(input)
	require.NoError(t, err)

	dt, err := io.ReadAll(d)
	require.NoError(t, err)
	assert.Equal(t, plain, dt)
	assert.True(t, d.Exhausted())
	assert.Equal(t, 1, input.closed)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.Equal(t, 1, input.closed)

	n, err := d.Read(make([]byte, 8))
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestDeflateCloseBeforeEnd(t *testing.T) {
	input := &closeCounter{Memory: source.NewMemory(testutil.Zlib(t, payload(64*1024)))}

	d, err := NewDeflate(input)
	require.NoError(t, err)
	_, err = d.Read(make([]byte, 100))
	require.NoError(t, err)

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.Equal(t, 1, input.closed)
}

func TestDeflateCorrupt(t *testing.T) {
	data := testutil.Zlib(t, payload(8*1024))

	t.Run("bad header", func(t *testing.T) {
		input := &closeCounter{Memory: source.NewMemory([]byte("not a zlib stream"))}
		_, err := NewDeflate(input)
		require.Error(t, err)
		var derr *Error
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, Deflate, derr.Codec)
		assert.Equal(t, "init", derr.Op)
		assert.Equal(t, 1, input.closed)
	})

	t.Run("truncated", func(t *testing.T) {
		d, err := NewDeflate(source.NewMemory(data[:len(data)/2]))
		require.NoError(t, err)
		defer d.Close()
		_, err = io.ReadAll(d)
		var derr *Error
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "inflate", derr.Op)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("checksum", func(t *testing.T) {
		broken := bytes.Clone(data)
		broken[len(broken)-1] ^= 0xff
		d, err := NewDeflate(source.NewMemory(broken))
		require.NoError(t, err)
		defer d.Close()
		_, err = io.ReadAll(d)
		var derr *Error
		require.ErrorAs(t, err, &derr)
	})
}

func TestLZMAHeader(t *testing.T) {
	plain := payload(4096)
	data := testutil.LZMA(t, plain)

	l, err := NewLZMA(source.NewMemory(data))
	require.NoError(t, err)
	defer l.Close()

	size, known := l.Size()
	assert.True(t, known)
	assert.Equal(t, uint64(len(plain)), size)

	props := l.Properties()
	assert.Equal(t, 3, props.LC)
	assert.Equal(t, 0, props.LP)
	assert.Equal(t, 2, props.PB)
	assert.GreaterOrEqual(t, props.DictSize, uint32(4096))
}

func TestLZMAClampsToDeclaredSize(t *testing.T) {
	plain := payload(1000)
	input := &closeCounter{Memory: source.NewMemory(testutil.LZMA(t, plain))}
	l, err := NewLZMA(input)
	require.NoError(t, err)
	defer l.Close()

	buf := make([]byte, 4096)
	n, err := l.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1000, n)
	assert.Equal(t, plain, buf[:n])
	assert.Equal(t, 1, input.closed)

	n, err = l.Read(buf)
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestLZMACorrupt(t *testing.T) {
	t.Run("short header", func(t *testing.T) {
		input := &closeCounter{Memory: source.NewMemory([]byte{0x5d, 0, 0})}
		_, err := NewLZMA(input)
		var derr *Error
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "header", derr.Op)
		assert.Equal(t, 1, input.closed)
	})

	t.Run("invalid properties", func(t *testing.T) {
		hdr := make([]byte, LZMAHeaderSize)
		hdr[0] = 225
		_, err := NewLZMA(source.NewMemory(hdr))
		var derr *Error
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "properties", derr.Op)
	})

	t.Run("truncated", func(t *testing.T) {
		data := testutil.LZMA(t, payload(64*1024))
		l, err := NewLZMA(source.NewMemory(data[:len(data)/2]))
		require.NoError(t, err)
		defer l.Close()
		_, err = io.ReadAll(l)
		var derr *Error
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "decode", derr.Op)
	})
}

func TestLZMAEmpty(t *testing.T) {
	input := &closeCounter{Memory: source.NewMemory(testutil.LZMA(t, nil))}
	l, err := NewLZMA(input)
	require.NoError(t, err)
	defer l.Close()

	n, err := l.Read(make([]byte, 64))
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, int64(0), l.Pos())
	assert.Equal(t, 1, input.closed)
}

func TestLZMADeclaredSizeOutOfRange(t *testing.T) {
	testCases := []struct {
		desc string
		size uint64
	}{
		{desc: "sign bit", size: 1 << 63},
		{desc: "largest known", size: ^uint64(0) - 1},
	}
	for _, tt := range testCases {
		t.Run(tt.desc, func(t *testing.T) {
			hdr := make([]byte, LZMAHeaderSize, LZMAHeaderSize+8)
			copy(hdr, []byte{0x5d, 0x00, 0x00, 0x10, 0x00})
			binary.LittleEndian.PutUint64(hdr[LZMAPropertiesSize:], tt.size)
			input := &closeCounter{Memory: source.NewMemory(append(hdr, make([]byte, 8)...))}

			_, err := NewLZMA(input)
			var derr *Error
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, LZMA, derr.Codec)
			assert.Equal(t, "header", derr.Op)
			assert.Equal(t, 1, input.closed)
		})
	}
}

func TestLZMAClose(t *testing.T) {
	input := &closeCounter{Memory: source.NewMemory(testutil.LZMA(t, payload(128)))}
	l, err := NewLZMA(input)
	require.NoError(t, err)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.Equal(t, 1, input.closed)

	n, err := l.Read(make([]byte, 8))
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestParseProperties(t *testing.T) {
	p, err := ParseProperties([]byte{0x5d, 0x00, 0x00, 0x10, 0x00})
	require.NoError(t, err)
	assert.Equal(t, Properties{LC: 3, LP: 0, PB: 2, DictSize: 1 << 20}, p)

	p, err = ParseProperties([]byte{0x5d, 0x01, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, uint32(4096), p.DictSize)

	_, err = ParseProperties([]byte{0x5d})
	require.Error(t, err)
}
