package util

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// GetCodeHash 映像内容的keccak256
func GetCodeHash(code []byte) (string, []byte) {
	result := crypto.Keccak256(code)
	return hex.EncodeToString(result), result
}

// GetHexCodeHash 十六进制文本形式的映像
func GetHexCodeHash(code string) (string, []byte, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(code, "0x"))
	if err != nil {
		return "", nil, err
	}
	h, result := GetCodeHash(data)
	return h, result, nil
}

// ParseAddress 解析十进制或0x开头的十六进制地址
func ParseAddress(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// ParseAddresses 解析逗号分隔的地址列表
func ParseAddresses(s string) ([]uint64, error) {
	var res []uint64
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		a, err := ParseAddress(part)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, nil
}
