package emitter

import "net"

// UnknownSource is reported when the host has no IPv4 address.
const UnknownSource = "Unknown"

// LocalIPv4 returns the first non-loopback IPv4 address of the host, falling
// back to a loopback address.
func LocalIPv4() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return UnknownSource
	}
	return pickIPv4(addrs)
}

func pickIPv4(addrs []net.Addr) string {
	loopback := ""
	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		ip4 := ip.To4()
		if ip4 == nil {
			continue
		}
		if !ip4.IsLoopback() {
			return ip4.String()
		}
		if loopback == "" {
			loopback = ip4.String()
		}
	}
	if loopback != "" {
		return loopback
	}
	return UnknownSource
}
