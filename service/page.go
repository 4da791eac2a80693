package service

import "github.com/cydxin/birdchat/repository"

// pageArgs 解析 next token + limit
func pageArgs(next string, limit int) (repository.Cursor, int, error) {
	cur, err := repository.DecodeCursor(next)
	if err != nil {
		return cur, 0, ErrInvalidParam
	}
	return cur, repository.NormalizeLimit(limit), nil
}

// nextOf 取满一页才返回游标；不满说明已到末尾
func nextOf(n, limit int, last repository.Cursor) string {
	if n < limit {
		return ""
	}
	return last.Encode()
}
