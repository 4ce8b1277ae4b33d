package message

import "strconv"

// 保留的元数据 key
const (
	MetaTopic = "_topic" // 发布 topic
	MetaType  = "_type"  // 负载类型名（如 std_msgs/String）
	MetaSeq   = "_seq"   // Endpoint 内发布序号
)

// Metadata 消息元数据
type Metadata map[string]string

// Get 获取元数据值，key 不存在返回空字符串。
func (m Metadata) Get(key string) string {
	if m == nil {
		return ""
	}
	return m[key]
}

// Set 设置元数据值。
func (m Metadata) Set(key, value string) {
	m[key] = value
}

// Uint 以无符号整数读取元数据，不存在或格式错误时 ok=false。
func (m Metadata) Uint(key string) (uint64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SetUint 以十进制写入无符号整数。
func (m Metadata) SetUint(key string, n uint64) {
	m[key] = strconv.FormatUint(n, 10)
}

