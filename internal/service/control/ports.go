package control

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/oshokin/alarm-bridge/internal/device"
)

// ListPorts prints the serial ports of this host as a table.
func ListPorts(out io.Writer) error {
	ports, err := device.ListPorts()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, RenderPorts(ports))

	return err
}

// RenderPorts formats ports as a rounded table.
func RenderPorts(ports []device.PortInfo) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Port", "USB", "VID", "PID", "Serial", "Product"})

	for _, p := range ports {
		tw.AppendRow(table.Row{p.Name, strconv.FormatBool(p.IsUSB), p.VID, p.PID, p.SerialNumber, p.Product})
	}

	return tw.Render()
}
