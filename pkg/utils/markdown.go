package utils

import (
	"bytes"
	"html/template"
	"log"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// goldmark 默认会丢弃原始 HTML，因此渲染结果可以直接放进页面。
var markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))

// RenderMarkdown 将消息正文渲染为安全的 HTML 片段
func RenderMarkdown(source string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		log.Printf("failed to render markdown: %v", err)
		return template.HTML(template.HTMLEscapeString(source))
	}
	return template.HTML(buf.String())
}
