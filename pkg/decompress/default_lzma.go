//go:build lzma

package decompress

const defaultCodec = LZMA
