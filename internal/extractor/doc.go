// Package extractor turns MediaWiki-style HTML into structured text.
//
// Extraction happens in two phases. The first phase uses goquery selectors:
// script/style/noscript elements are dropped, the title is resolved, the
// content root is located and known chrome (edit links, table of contents,
// navboxes, reference lists) is removed. The second phase walks the content
// root with a small visitor over a closed set of node kinds (heading,
// paragraph, list item, preformatted, blockquote, table, other) and renders
// each block as lightweight Markdown with github.com/nao1215/markdown.
//
// The transform is deterministic: the same HTML always yields the same body.
package extractor
