package sandbox

import (
	"bytes"
	"io"
	"strings"
)

var frameDelimiter = []byte("\n\n")

// sseFrame 一条事件流记录。
type sseFrame struct {
	event string
	data  string
}

// sseDecoder 把任意切分的字节流还原为完整的事件记录。
// 缓冲区按字节处理，跨块的多字节字符不会被截断。
type sseDecoder struct {
	buf []byte
}

// feed 追加一块数据并依次交付其中完整的记录，handle 返回 true 时停止并返回 true。
func (d *sseDecoder) feed(chunk []byte, handle func(sseFrame) bool) bool {
	d.buf = append(d.buf, chunk...)
	for {
		i := bytes.Index(d.buf, frameDelimiter)
		if i < 0 {
			return false
		}
		raw := d.buf[:i]
		d.buf = d.buf[i+len(frameDelimiter):]
		if handle(parseFrame(raw)) {
			d.buf = nil
			return true
		}
	}
}

// flush 在流结束时把剩余数据作为最后一条记录处理。
func (d *sseDecoder) flush(handle func(sseFrame) bool) bool {
	if stop := d.feed(nil, handle); stop {
		return true
	}
	if len(bytes.TrimSpace(d.buf)) == 0 {
		d.buf = nil
		return false
	}
	raw := d.buf
	d.buf = nil
	return handle(parseFrame(raw))
}

// parseFrame 逐行解析 "key: value"，key 为第一个冒号之前的内容，value 去除首尾空白。
func parseFrame(raw []byte) sseFrame {
	var f sseFrame
	for _, line := range strings.Split(string(raw), "\n") {
		key, value, _ := strings.Cut(line, ":")
		value = strings.TrimSpace(value)
		switch key {
		case "event":
			f.event = value
		case "data":
			f.data = value
		}
	}
	return f
}

// readEventStream 读取 r 直到 handle 返回 true。
// 在此之前遇到 EOF 返回 ErrStreamClosed，读取失败返回对应错误。
func readEventStream(r io.Reader, handle func(sseFrame) bool) error {
	var d sseDecoder
	chunk := make([]byte, 32*1024)
	for {
		n, err := r.Read(chunk)
		if n > 0 && d.feed(chunk[:n], handle) {
			return nil
		}
		if err == io.EOF {
			if d.flush(handle) {
				return nil
			}
			return ErrStreamClosed
		}
		if err != nil {
			return err
		}
	}
}
