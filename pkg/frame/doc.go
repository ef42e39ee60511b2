// Package frame implements the recorder's sub-document and style-graph
// fan-out: IframeManager recurses recording into same-origin iframes
// and rewrites cross-origin child ids into the parent's id space,
// ShadowDomManager attaches a fresh observer set to every shadow root
// encountered (including ones opened after the initial snapshot), and
// StylesheetManager tracks the id space used to translate cross-origin
// stylesheet references.
package frame
