package haros

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Issue haros 报告的一条问题
type Issue struct {
	File     string
	Line     string
	Severity string // failure 的 type 属性，缺省 FAILURE
	ID       string // testcase 的 id 属性，缺省 UNKNOWN ISSUE
	Message  string
	Category string
}

// String lint 风格输出：[file:line]: (severity: id) message
func (i Issue) String() string {
	return fmt.Sprintf("[%s:%s]: (%s: %s) %s", i.File, i.Line, i.Severity, i.ID, i.Message)
}

type xunitRoot struct {
	Suites []xunitSuite `xml:",any"`
}

type xunitSuite struct {
	Cases []xunitCase `xml:",any"`
}

type xunitCase struct {
	ID       string         `xml:"id,attr"`
	Failures []xunitFailure `xml:",any"`
}

type xunitFailure struct {
	Type string `xml:"type,attr"`
	Text string `xml:",chardata"`
}

// ParseXUnit 解析 haros 的 xUnit 报告。
//
// 每个 testcase 的首个子元素是失败记录，正文依次为：空行、消息、
// "Category: ..."、"File: ..."、"Line: ..."。没有子元素的 testcase 视为通过。
func ParseXUnit(r io.Reader) ([]Issue, error) {
	var root xunitRoot
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("haros: parse xunit: %w", err)
	}

	var issues []Issue
	for _, suite := range root.Suites {
		for _, tc := range suite.Cases {
			if len(tc.Failures) == 0 {
				continue
			}
			f := tc.Failures[0]
			lines := strings.Split(f.Text, "\n")
			issue := Issue{
				ID:       tc.ID,
				Severity: f.Type,
				Message:  field(lines, 1, ""),
				Category: field(lines, 2, "Category: "),
				File:     field(lines, 3, "File: "),
				Line:     field(lines, 4, "Line: "),
			}
			if issue.ID == "" {
				issue.ID = "UNKNOWN ISSUE"
			}
			if issue.Severity == "" {
				issue.Severity = "FAILURE"
			}
			issues = append(issues, issue)
		}
	}
	return issues, nil
}

func field(lines []string, i int, label string) string {
	if i >= len(lines) {
		return ""
	}
	return strings.TrimPrefix(strings.TrimSpace(lines[i]), label)
}
