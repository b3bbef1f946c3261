package memory

import "fmt"

// UnmappedError 读取了未映射的内存
type UnmappedError struct {
	Zone    string
	Address int64
}

func (e *UnmappedError) Error() string {
	if e.Zone == "" {
		return fmt.Sprintf("unmapped memory at %#x", uint64(e.Address))
	}
	return fmt.Sprintf("unmapped memory at %s%+#x", e.Zone, e.Address)
}
