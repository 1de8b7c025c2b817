package phototagger

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"unicode/utf16"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
)

// WriteJPEGMetadata embeds the caption into the EXIF ImageDescription tag
// and the keyword string into XPKeywords, then rewrites the file at path
// in place. An empty keywords string leaves XPKeywords unset.
func WriteJPEGMetadata(path, caption, keywords string) error {
	jmp := jpegstructure.NewJpegMediaParser()
	intfc, err := jmp.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse jpeg: %w", err)
	}
	sl := intfc.(*jpegstructure.SegmentList)

	rootIb, err := sl.ConstructExifBuilder()
	if err != nil {
		// No EXIF block present, start a fresh one.
		im := exifcommon.NewIfdMapping()
		if err := exifcommon.LoadStandardIfds(im); err != nil {
			return fmt.Errorf("load standard ifds: %w", err)
		}
		ti := exif.NewTagIndex()
		rootIb = exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder)
	}

	ifd0Ib, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD0")
	if err != nil {
		return fmt.Errorf("ifd0 builder: %w", err)
	}

	if err := ifd0Ib.SetStandardWithName("ImageDescription", caption); err != nil {
		return fmt.Errorf("set description: %w", err)
	}
	if keywords != "" {
		if err := ifd0Ib.SetStandardWithName("XPKeywords", encodeUTF16LE(keywords)); err != nil {
			return fmt.Errorf("set keywords: %w", err)
		}
	}

	if err := sl.SetExif(rootIb); err != nil {
		return fmt.Errorf("set exif: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := sl.Write(buf); err != nil {
		return fmt.Errorf("serialize jpeg: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("rewrite %s: %w", path, err)
	}

	return nil
}

// encodeUTF16LE returns s as UTF-16LE bytes with a trailing double-NUL,
// the layout Windows tools expect for the XP* EXIF tags.
func encodeUTF16LE(s string) []byte {
	codes := utf16.Encode([]rune(s))

	out := make([]byte, 0, len(codes)*2+2)
	for _, c := range codes {
		out = binary.LittleEndian.AppendUint16(out, c)
	}

	return append(out, 0x00, 0x00)
}
