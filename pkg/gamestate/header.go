package gamestate

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"regexp"
)

// Plugin files open with a TES4 record whose subrecords carry the
// format version (HEDR), author (CNAM) and description (SNAM). Mod
// authors conventionally put their version number in the description.

const headerMagic = "TES4"

// maxHeaderData caps how much record data is scanned for subrecords,
// so a corrupt size field cannot make us slurp a whole plugin.
const maxHeaderData = 1 << 20

var versionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)version:?\s*v?([0-9][0-9a-z]*(?:[._\-][0-9a-z]+)*)`),
	regexp.MustCompile(`(?i)\bv?([0-9]+(?:\.[0-9]+)+)`),
}

// readPluginVersion extracts a version string from the description
// subrecord of the plugin at path. Plugins with no description, no
// version in it, or a header we cannot make sense of yield "".
func readPluginVersion(path string, game GameType) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	header := make([]byte, game.recordHeaderSize())
	if _, err := io.ReadFull(f, header); err != nil {
		return "", nil
	}
	if string(header[:4]) != headerMagic {
		return "", nil
	}
	size := binary.LittleEndian.Uint32(header[4:8])
	if size > maxHeaderData {
		size = maxHeaderData
	}

	data := make([]byte, size)
	n, _ := io.ReadFull(f, data)
	desc, ok := findSubrecord(data[:n], "SNAM")
	if !ok {
		return "", nil
	}
	return extractVersion(zstring(desc)), nil
}

// findSubrecord walks the subrecords in data and returns the payload of
// the first one of the given type.
func findSubrecord(data []byte, typ string) ([]byte, bool) {
	for len(data) >= 6 {
		t := string(data[:4])
		size := int(binary.LittleEndian.Uint16(data[4:6]))
		data = data[6:]
		if size > len(data) {
			return nil, false
		}
		if t == typ {
			return data[:size], true
		}
		data = data[size:]
	}
	return nil, false
}

// zstring decodes a NUL-terminated string payload.
func zstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// extractVersion pulls a version number out of free-form description
// text: an explicit "version:" label wins, otherwise the first dotted
// number.
func extractVersion(desc string) string {
	for _, re := range versionPatterns {
		if m := re.FindStringSubmatch(desc); m != nil {
			return m[1]
		}
	}
	return ""
}
