package mp4

import "fmt"

// descriptor implements MPEG-4 descriptor parsing for esds boxes.

// esdsCodecString derives the short codec string (object type indication,
// plus the MPEG-4 audio object type for audio streams) from a raw esds box
// body. Shared by decodeEsds and the streaming ReadEsdsCodec helper so both
// entry points agree on the format.
func esdsCodecString(buf []byte) string {
	desc := decodeDescriptor(buf, 0, len(buf))
	if desc == nil || desc.tagName != "ESDescriptor" {
		return ""
	}
	dcd, ok := desc.children["DecoderConfigDescriptor"]
	if !ok || dcd.oti == 0 {
		return ""
	}
	codec := fmt.Sprintf("%x", dcd.oti)
	if dsi, ok := dcd.children["DecoderSpecificInfo"]; ok && len(dsi.buffer) > 0 {
		audioConfig := (dsi.buffer[0] & 0xf8) >> 3
		if audioConfig != 0 {
			codec += fmt.Sprintf(".%d", audioConfig)
		}
	}
	return codec
}

// esdsDecoderSpecificInfo extracts the raw DecoderSpecificInfo payload
// (typically an AudioSpecificConfig) from a raw esds box body, or nil if
// absent.
func esdsDecoderSpecificInfo(buf []byte) []byte {
	desc := decodeDescriptor(buf, 0, len(buf))
	if desc == nil || desc.tagName != "ESDescriptor" {
		return nil
	}
	dcd, ok := desc.children["DecoderConfigDescriptor"]
	if !ok {
		return nil
	}
	dsi, ok := dcd.children["DecoderSpecificInfo"]
	if !ok {
		return nil
	}
	return dsi.buffer
}

var tagToName = map[byte]string{
	0x03: "ESDescriptor",
	0x04: "DecoderConfigDescriptor",
	0x05: "DecoderSpecificInfo",
	0x06: "SLConfigDescriptor",
}

type descriptor struct {
	tag      byte
	tagName  string
	length   int
	oti      byte
	buffer   []byte
	children map[string]*descriptor
}

func decodeDescriptor(buf []byte, start, end int) *descriptor {
	if start >= end {
		return nil
	}
	tag := buf[start]
	ptr := start + 1
	length := 0
	for ptr < end {
		lenByte := buf[ptr]
		ptr++
		length = (length << 7) | int(lenByte&0x7f)
		if lenByte&0x80 == 0 {
			break
		}
	}

	tagName := tagToName[tag]
	d := &descriptor{
		tag:      tag,
		tagName:  tagName,
		length:   (ptr - start) + length,
		children: make(map[string]*descriptor),
	}

	switch tagName {
	case "ESDescriptor":
		decodeESDescriptor(d, buf, ptr, end)
	case "DecoderConfigDescriptor":
		decodeDecoderConfigDescriptor(d, buf, ptr, end)
	case "DecoderSpecificInfo":
		dEnd := ptr + length
		if dEnd > end {
			dEnd = end
		}
		d.buffer = buf[ptr:dEnd]
	default:
		dEnd := min(ptr+length, end)
		d.buffer = buf[ptr:dEnd]
	}

	return d
}

func decodeDescriptorArray(buf []byte, start, end int) map[string]*descriptor {
	m := make(map[string]*descriptor)
	ptr := start
	for ptr+2 <= end {
		desc := decodeDescriptor(buf, ptr, end)
		if desc == nil {
			break
		}
		ptr += desc.length
		name := desc.tagName
		if name == "" {
			continue
		}
		m[name] = desc
	}
	return m
}

func decodeESDescriptor(d *descriptor, buf []byte, start, end int) {
	if start+3 > end {
		return
	}
	flags := buf[start+2]
	ptr := start + 3
	if flags&0x80 != 0 {
		ptr += 2
	}
	if flags&0x40 != 0 {
		if ptr >= end {
			return
		}
		l := int(buf[ptr])
		ptr += l + 1
	}
	if flags&0x20 != 0 {
		ptr += 2
	}
	d.children = decodeDescriptorArray(buf, ptr, end)
}

func decodeDecoderConfigDescriptor(d *descriptor, buf []byte, start, end int) {
	if start >= end {
		return
	}
	d.oti = buf[start]
	d.children = decodeDescriptorArray(buf, start+13, end)
}
