// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package emumanager

import (
	"net"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"
)

// FrameKind classifies a raw Ethernet frame read off a Proxy's tap fd
// (spec §6 "Tap device" parsing rules).
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameIPv4
	FrameARP
	FrameDroppedIPv6
	FrameDroppedDHCPClient
	FrameUnsupportedVLAN
)

// ClassifiedFrame is the result of classifying one raw frame.
type ClassifiedFrame struct {
	Kind  FrameKind
	SrcIP net.IP
	DstIP net.IP
	// Frame is the verbatim raw Ethernet frame, header included. An L2
	// tap on the receiving end expects exactly this: spec §6's capture
	// path never strips or rewrites bytes in flight, it only inspects
	// them to classify and route.
	Frame []byte
	// Payload is Frame with its 14-byte Ethernet header stripped, for
	// IPv4/ARP frames only. SrcIP/DstIP are decoded by gopacket, not
	// read from Payload, and Payload is never written out to a tap.
	Payload []byte
}

// ClassifyFrame applies spec §6's Tap device parsing rules: EtherType
// 0x0800 (IPv4) is accepted with the DHCP-client exception (UDP source
// port 68 dropped as client noise); 0x0806 (ARP) is accepted; 0x86DD
// (IPv6) and 0x8100 (802.1Q) are dropped/unsupported.
func ClassifyFrame(raw []byte) ClassifiedFrame {
	pkt := gopacket.NewPacket(raw, layers.LayerTypeEthernet, gopacket.NoCopy)
	ethLayer := pkt.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		return ClassifiedFrame{Kind: FrameUnknown}
	}
	eth := ethLayer.(*layers.Ethernet)

	switch eth.EthernetType {
	case layers.EthernetTypeIPv4:
		return classifyIPv4(pkt, eth, raw)
	case layers.EthernetTypeARP:
		return classifyARP(pkt, eth, raw)
	case layers.EthernetTypeIPv6:
		return ClassifiedFrame{Kind: FrameDroppedIPv6}
	case layers.EthernetTypeDot1Q:
		return ClassifiedFrame{Kind: FrameUnsupportedVLAN}
	default:
		return ClassifiedFrame{Kind: FrameUnknown}
	}
}

func classifyIPv4(pkt gopacket.Packet, eth *layers.Ethernet, raw []byte) ClassifiedFrame {
	ipLayer := pkt.Layer(layers.LayerTypeIPv4)
	if ipLayer == nil {
		return ClassifiedFrame{Kind: FrameUnknown}
	}
	ip := ipLayer.(*layers.IPv4)

	if udpLayer := pkt.Layer(layers.LayerTypeUDP); udpLayer != nil {
		udp := udpLayer.(*layers.UDP)
		if udp.SrcPort == 68 {
			return ClassifiedFrame{Kind: FrameDroppedDHCPClient}
		}
	}

	return ClassifiedFrame{
		Kind:    FrameIPv4,
		SrcIP:   ip.SrcIP,
		DstIP:   ip.DstIP,
		Frame:   raw,
		Payload: eth.Payload,
	}
}

func classifyARP(pkt gopacket.Packet, eth *layers.Ethernet, raw []byte) ClassifiedFrame {
	arpLayer := pkt.Layer(layers.LayerTypeARP)
	if arpLayer == nil {
		return ClassifiedFrame{Kind: FrameUnknown}
	}
	arp := arpLayer.(*layers.ARP)
	return ClassifiedFrame{
		Kind:    FrameARP,
		SrcIP:   net.IP(arp.SourceProtAddress),
		DstIP:   net.IP(arp.DstProtAddress),
		Frame:   raw,
		Payload: eth.Payload,
	}
}
