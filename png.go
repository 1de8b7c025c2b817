package phototagger

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"

	pngstructure "github.com/dsoprea/go-png-image-structure/v2"
)

const (
	pngDescriptionKeyword = "Description"
	pngKeywordsKeyword    = "Keywords"
)

// WritePNGMetadata embeds the caption and keyword string into tEXt chunks
// named "Description" and "Keywords" and rewrites the file at path in
// place. Existing chunks with those names are replaced. PNG has no EXIF
// equivalent, so this metadata is only visible to tools that read PNG text
// chunks. An empty keywords string leaves the Keywords chunk unset.
func WritePNGMetadata(path, caption, keywords string) error {
	pmp := pngstructure.NewPngMediaParser()
	intfc, err := pmp.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse png: %w", err)
	}
	cs := intfc.(*pngstructure.ChunkSlice)

	buf := new(bytes.Buffer)
	buf.Write(pngstructure.PngSignature[:])

	for _, chunk := range cs.Chunks() {
		if chunk.Type == "tEXt" {
			switch textChunkKeyword(chunk.Data) {
			case pngDescriptionKeyword, pngKeywordsKeyword:
				// Superseded by the chunks written below.
				continue
			}
		}

		if chunk.Type == "IEND" {
			writeTextChunk(buf, pngDescriptionKeyword, caption)
			if keywords != "" {
				writeTextChunk(buf, pngKeywordsKeyword, keywords)
			}
		}

		writeChunk(buf, chunk.Type, chunk.Data)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("rewrite %s: %w", path, err)
	}

	return nil
}

// textChunkKeyword returns the keyword of a tEXt chunk, the part of the
// data before the NUL separator.
func textChunkKeyword(data []byte) string {
	i := bytes.IndexByte(data, 0)
	if i < 0 {
		return ""
	}

	return string(data[:i])
}

func writeTextChunk(w *bytes.Buffer, keyword, text string) {
	data := make([]byte, 0, len(keyword)+1+len(text))
	data = append(data, keyword...)
	data = append(data, 0)
	data = append(data, text...)

	writeChunk(w, "tEXt", data)
}

// writeChunk emits a single chunk: big-endian length, type, data and the
// CRC32 over type+data.
func writeChunk(w *bytes.Buffer, ctype string, data []byte) {
	var word [4]byte

	binary.BigEndian.PutUint32(word[:], uint32(len(data)))
	w.Write(word[:])
	w.WriteString(ctype)
	w.Write(data)

	crc := crc32.NewIEEE()
	crc.Write([]byte(ctype))
	crc.Write(data)
	binary.BigEndian.PutUint32(word[:], crc.Sum32())
	w.Write(word[:])
}
