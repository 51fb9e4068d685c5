package serverlib

import "github.com/pkg/errors"

// Recover 运行 f，并把 panic 转换为错误
func Recover(f func()) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("panic: %v", p)
		}
	}()
	f()
	return nil
}
