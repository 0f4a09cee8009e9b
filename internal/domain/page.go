package domain

type Page struct {
	Limit  int
	Offset int
}

// Normalize 对分页参数进行修正，limit 为 0 时使用默认值，超过上限时截断
func (p Page) Normalize(defaultLimit, maxLimit int) Page {
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
