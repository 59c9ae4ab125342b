// Package alarm contains the core domain types exchanged with the controller.
//
// It defines Status (one decoded controller report), Kind and Event (an
// alert raised on a condition edge), the all-or-nothing DecodeStatus parser
// for inbound lines and EncodeCommand for outbound command framing.
package alarm
