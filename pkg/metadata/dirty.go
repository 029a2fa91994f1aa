package metadata

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// CleaningData records the dirty-edit counts reported for one known
// revision of a plugin, identified by the CRC-32 of the plugin file.
type CleaningData struct {
	CRC     uint32 `json:"crc"`            // CRC-32 (IEEE) of the plugin revision this applies to.
	ITM     int    `json:"itm,omitempty"`  // Identical-to-master record count.
	UDR     int    `json:"udr,omitempty"`  // Deleted reference count.
	Nav     int    `json:"nav,omitempty"`  // Deleted navmesh count.
	Utility string `json:"util,omitempty"` // Cleaning utility that produced the counts.
}

// crc32Hex marshals checksums in the 0x-prefixed upper-case form list
// documents use, and accepts decimal or hex on the way in.
type crc32Hex uint32

func (c crc32Hex) MarshalYAML() (any, error) {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!int",
		Value: fmt.Sprintf("0x%08X", uint32(c)),
	}, nil
}

func (c *crc32Hex) UnmarshalYAML(value *yaml.Node) error {
	s := strings.TrimSpace(value.Value)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return fmt.Errorf("line %d: %w: %q is not a 32-bit checksum", value.Line, ErrMalformed, value.Value)
	}
	*c = crc32Hex(v)
	return nil
}

type cleaningDoc struct {
	CRC     *crc32Hex `yaml:"crc"`
	Utility string    `yaml:"util,omitempty"`
	ITM     int       `yaml:"itm,omitempty"`
	UDR     int       `yaml:"udr,omitempty"`
	Nav     int       `yaml:"nav,omitempty"`
}

// UnmarshalYAML decodes a cleaning record. The crc key is required;
// without it the record cannot be applied to anything.
func (d *CleaningData) UnmarshalYAML(value *yaml.Node) error {
	var aux cleaningDoc
	if err := value.Decode(&aux); err != nil {
		return err
	}
	if aux.CRC == nil {
		return fmt.Errorf("line %d: %w: cleaning data must have a crc", value.Line, ErrMalformed)
	}
	d.CRC = uint32(*aux.CRC)
	d.ITM = aux.ITM
	d.UDR = aux.UDR
	d.Nav = aux.Nav
	d.Utility = aux.Utility
	return nil
}

func (d CleaningData) MarshalYAML() (any, error) {
	crc := crc32Hex(d.CRC)
	return cleaningDoc{
		CRC:     &crc,
		Utility: d.Utility,
		ITM:     d.ITM,
		UDR:     d.UDR,
		Nav:     d.Nav,
	}, nil
}

// mergeCleaningData accumulates records by CRC. A record in extra for a
// CRC already present replaces the base record; new CRCs append in
// extra's order.
func mergeCleaningData(base, extra []CleaningData) []CleaningData {
	index := make(map[uint32]int, len(base))
	for i, d := range base {
		index[d.CRC] = i
	}
	for _, d := range extra {
		if i, ok := index[d.CRC]; ok {
			base[i] = d
			continue
		}
		index[d.CRC] = len(base)
		base = append(base, d)
	}
	return base
}
