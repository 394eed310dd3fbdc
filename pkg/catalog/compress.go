package catalog

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstd.Encoder and zstd.Decoder are safe for concurrent use with EncodeAll
// and DecodeAll, so one of each serves every catalog.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("catalog: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("catalog: zstd decoder initialization failed: " + err.Error())
	}
}

func compress(data []byte) []byte {
	return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2))
}

// decompress inflates a stored blob and checks it against the recorded size.
func decompress(compressed []byte, size int64) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if int64(len(result)) != size {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), size)
	}
	return result, nil
}
