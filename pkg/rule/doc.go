/*
Package rule pairs a match pattern with a replacement template and an
idempotency guard, and applies the pair to file content.

	+----------+     +-----------+     +------------+
	|  Guard   | --> |  Pattern  | --> |  Template  |
	| (skip?)  |     |  (find)   |     |  (render)  |
	+----------+     +-----------+     +------------+

🔄 Flow:
1. Guard already satisfied: skipped-already-present, content untouched
2. No match: skipped-not-found, content untouched
3. Every match rendered and spliced in one pass: applied
4. Render error or a result the rule would rewrite again: failed, content untouched

A rule applied to its own output must be a no-op. Apply enforces this by
checking, after splicing, that the guard now holds or that the pattern no
longer matches.
*/
package rule
