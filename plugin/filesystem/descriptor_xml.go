package filesystem

import (
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
)

// XML element and attribute names of the descriptor file.
const (
	xmlRoot         = "application"
	xmlGroup        = "plugingroup"
	xmlPlugin       = "plugin"
	xmlAttrName     = "name"
	xmlAttrIface    = "interface"
	xmlAttrKey      = "key"
	xmlAttrSource   = "source"
	xmlAttrEnabled  = "enabled"
	xmlIndentSpaces = 2
)

// XMLCodec encodes descriptor files as
//
//	<application>
//	  <plugingroup name="..." interface="..." key="..." source="...">
//	    <plugin enabled="true" source="...">class.Name</plugin>
//	  </plugingroup>
//	</application>
type XMLCodec struct{}

// Decode parses an XML descriptor file.
func (XMLCodec) Decode(r io.Reader) (*entities.DescriptorFile, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("decoding descriptor XML: %w", err)
	}

	root := doc.Root()
	if root == nil || root.Tag != xmlRoot {
		return nil, fmt.Errorf("decoding descriptor XML: root element must be <%s>", xmlRoot)
	}

	file := entities.NewDescriptorFile()
	for _, g := range root.SelectElements(xmlGroup) {
		group := &entities.PluginGroup{
			Name:       g.SelectAttrValue(xmlAttrName, ""),
			Capability: values.Capability(strings.TrimSpace(g.SelectAttrValue(xmlAttrIface, ""))),
			Key:        g.SelectAttrValue(xmlAttrKey, ""),
			Source:     g.SelectAttrValue(xmlAttrSource, ""),
		}
		for _, p := range g.SelectElements(xmlPlugin) {
			group.Plugins = append(group.Plugins, &entities.PluginEntry{
				ClassName: strings.TrimSpace(p.Text()),
				Enabled:   p.SelectAttrValue(xmlAttrEnabled, "true") != "false",
				Source:    p.SelectAttrValue(xmlAttrSource, ""),
			})
		}
		file.Groups = append(file.Groups, group)
	}
	return file, nil
}

// Encode writes the descriptor file as indented XML.
func (XMLCodec) Encode(w io.Writer, file *entities.DescriptorFile) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(xmlRoot)

	for _, group := range file.Groups {
		g := root.CreateElement(xmlGroup)
		if group.Name != "" {
			g.CreateAttr(xmlAttrName, group.Name)
		}
		g.CreateAttr(xmlAttrIface, group.Capability.String())
		if group.Key != "" {
			g.CreateAttr(xmlAttrKey, group.Key)
		}
		if group.Source != "" {
			g.CreateAttr(xmlAttrSource, group.Source)
		}
		for _, entry := range group.Plugins {
			p := g.CreateElement(xmlPlugin)
			p.CreateAttr(xmlAttrEnabled, fmt.Sprintf("%t", entry.Enabled))
			if entry.Source != "" {
				p.CreateAttr(xmlAttrSource, entry.Source)
			}
			p.SetText(entry.ClassName)
		}
	}

	doc.Indent(xmlIndentSpaces)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("encoding descriptor XML: %w", err)
	}
	return nil
}
