package redisclient

import (
	"fmt"
	"strconv"
	"strings"
)

// parseClusterNodes parses the CLUSTER NODES bulk reply into NodeInfo
// values. Mirrors the wire format:
//
//	<id> <ip:port@cport> <flags> <master> <ping-sent> <pong-recv> <config-epoch> <link-state> <slot> <slot> ...
func parseClusterNodes(output string) ([]NodeInfo, error) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	nodes := make([]NodeInfo, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 8 {
			return nil, fmt.Errorf("redisclient: invalid CLUSTER NODES line: %s", line)
		}

		node := NodeInfo{
			ID:        fields[0],
			Addr:      normalizeAddr(fields[1]),
			Flags:     strings.Split(fields[2], ","),
			SlaveOf:   fields[3],
			Connected: fields[7] == "connected",
		}

		for i := 8; i < len(fields); i++ {
			slotField := fields[i]
			if strings.HasPrefix(slotField, "[") {
				// importing/migrating marker, e.g. [1234-<-abcd], ignored here
				continue
			}
			slotRange, err := parseSlotRange(slotField)
			if err != nil {
				return nil, fmt.Errorf("redisclient: bad slot range %q: %w", slotField, err)
			}
			node.Slots = append(node.Slots, slotRange)
		}

		nodes = append(nodes, node)
	}

	return nodes, nil
}

func normalizeAddr(addr string) string {
	if idx := strings.Index(addr, "@"); idx != -1 {
		addr = addr[:idx]
	}
	return addr
}

func parseSlotRange(s string) ([2]int, error) {
	parts := strings.SplitN(s, "-", 2)
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return [2]int{}, err
	}
	if len(parts) == 1 {
		return [2]int{start, start}, nil
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return [2]int{}, err
	}
	return [2]int{start, end}, nil
}
