// Copyright 2025 The gopsd authors
// SPDX-License-Identifier: MIT

package psd

import (
	"encoding/xml"
	"fmt"
	"io"
	"unicode"
	"unicode/utf8"
)

var xmpSkipNamespaces = map[string]bool{
	"xmlns": true,
	"http://www.w3.org/1999/02/22-rdf-syntax-ns#": true,
}

// XMPField is one attribute or list element from an XMP packet.
type XMPField struct {
	Name      string
	Namespace string
	Value     any
}

type xmpmeta struct {
	XMLName xml.Name
	RDF     rdf `xml:"RDF"`
}

type rdf struct {
	XMLName      xml.Name
	Descriptions []rdfDescription `xml:"Description"`
}

// Note: We currently only handle a subset of XMP,
// but a very common subset.
type rdfDescription struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Creator seqList    `xml:"creator"`
	Subject bagList    `xml:"subject"`
	Rights  altList    `xml:"rights"`
	Title   altList    `xml:"title"`
}

type altList struct {
	XMLName xml.Name
	Alt     struct {
		Items []string `xml:"li"`
	} `xml:"Alt"`
}

type seqList struct {
	XMLName xml.Name
	Seq     struct {
		Items []string `xml:"li"`
	} `xml:"Seq"`
}

type bagList struct {
	XMLName xml.Name
	Bag     struct {
		Items []string `xml:"li"`
	} `xml:"Bag"`
}

// DecodeXMP parses the rdf:Description subset of an XMP packet, as carried
// in the XMP metadata resource block, into a flat field list.
func DecodeXMP(r io.Reader) ([]XMPField, error) {
	var meta xmpmeta
	if err := xml.NewDecoder(r).Decode(&meta); err != nil {
		return nil, newInvalidFormatError(fmt.Errorf("decoding XMP: %w", err))
	}

	var fields []XMPField

	for _, desc := range meta.RDF.Descriptions {
		for _, attr := range desc.Attrs {
			if xmpSkipNamespaces[attr.Name.Space] {
				continue
			}
			fields = append(fields, XMPField{
				Name:      firstUpper(attr.Name.Local),
				Namespace: attr.Name.Space,
				Value:     attr.Value,
			})
		}

		fields = appendListField(fields, desc.Creator.XMLName, desc.Creator.Seq.Items)
		fields = appendListField(fields, desc.Subject.XMLName, desc.Subject.Bag.Items)
		fields = appendListField(fields, desc.Rights.XMLName, desc.Rights.Alt.Items)
		fields = appendListField(fields, desc.Title.XMLName, desc.Title.Alt.Items)
	}

	return fields, nil
}

func appendListField(fields []XMPField, name xml.Name, items []string) []XMPField {
	if len(items) == 0 || name.Local == "" {
		return fields
	}
	var v any
	// This is how ExifTool does it:
	if len(items) == 1 {
		v = items[0]
	} else {
		v = items
	}
	return append(fields, XMPField{
		Name:      firstUpper(name.Local),
		Namespace: name.Space,
		Value:     v,
	})
}

func firstUpper(s string) string {
	if s == "" {
		return ""
	}
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[n:]
}
