package reader

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"github.com/sells-group/bom-cli/internal/bomerr"
)

// ReadHTMLTables returns every <table> in the document as a grid of cell
// text. Nested tables are returned separately and do not contribute text to
// the enclosing cell.
func ReadHTMLTables(r io.Reader) ([][][]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, eris.Wrap(err, "html: parse document")
	}

	var tables [][][]string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Table {
			tables = append(tables, tableRows(n))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return tables, nil
}

func tableRows(table *html.Node) [][]string {
	var rows [][]string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Table:
				// handled by ReadHTMLTables
			case atom.Tr:
				rows = append(rows, rowCells(c))
			default:
				walk(c)
			}
		}
	}
	walk(table)
	return rows
}

func rowCells(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			var sb strings.Builder
			nodeText(c, &sb)
			cells = append(cells, strings.Join(strings.Fields(sb.String()), " "))
		}
	}
	return cells
}

func nodeText(n *html.Node, sb *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			sb.WriteString(c.Data)
		case c.Type == html.ElementNode && c.DataAtom == atom.Table:
		case c.Type == html.ElementNode && c.DataAtom == atom.Br:
			sb.WriteByte(' ')
		default:
			nodeText(c, sb)
		}
	}
}

// ReadHTMLFile parses the tables of an HTML export. An empty enc lets the
// document's <meta> charset (or content sniffing) decide.
func ReadHTMLFile(path, enc string) ([][][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "html: read file")
	}

	var r io.Reader
	if enc != "" {
		text, err := DecodeText(data, enc)
		if err != nil {
			return nil, err
		}
		r = strings.NewReader(text)
	} else {
		r, err = charset.NewReader(bytes.NewReader(data), "text/html")
		if err != nil {
			return nil, bomerr.Wrap(err, bomerr.EncodingDetection, "html charset")
		}
	}
	return ReadHTMLTables(r)
}
