package solver

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint 载荷 JSON 的 SHA-256（十六进制）
// encoding/json 对 map 键排序输出，相同状态得到相同摘要
func Fingerprint(p *Payload) (string, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]), nil
}
