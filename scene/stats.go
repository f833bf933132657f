package scene

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
)

// Build a tabular representation of the catalog contents.
func (c *Catalog) Stats() string {
	var shapeCount [numShapes]int
	hitGroupCount := make([]int, len(HitGroups))
	for _, inst := range c.instances {
		shapeCount[inst.Shape]++
		hitGroupCount[inst.HitGroup]++
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Section", "Entry", "Value"})
	table.Append([]string{"Objects", "---", fmt.Sprint(len(c.objects))})
	for shape := Shape(0); shape < numShapes; shape++ {
		table.Append([]string{"", shape.String(), fmt.Sprint(shapeCount[shape])})
	}
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Hit groups", "---", fmt.Sprint(len(HitGroups))})
	for slot, hg := range HitGroups {
		if hitGroupCount[slot] == 0 {
			continue
		}
		table.Append([]string{"", fmt.Sprintf("%2d %s", slot, hg.Name), fmt.Sprint(hitGroupCount[slot])})
	}
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Lights", "---", fmt.Sprint(len(c.lights))})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Buffers", "---", fmtSize(len(c.objects)*ObjectRecordSize + len(EncodeLights(c.lights)) + CameraRecordSize)})
	table.Append([]string{"", "Objects", fmtSize(len(c.objects) * ObjectRecordSize)})
	table.Append([]string{"", "Lights", fmtSize(len(EncodeLights(c.lights)))})
	table.Append([]string{"", "Camera", fmtSize(CameraRecordSize)})

	table.Render()
	return buf.String()
}

// Format a byte count with the appropriate byte/kb/mb unit.
func fmtSize(totalBytes int) string {
	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", totalBytes)
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", float32(totalBytes)/1e3)
	}
	return fmt.Sprintf("%5.1f mb", float32(totalBytes)/1e6)
}
