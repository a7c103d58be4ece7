// Package report renders the outcome of a photobox session.
//
// Builder turns the tracker's outcomes into a model.ReportModel and renders
// index.html through a Renderer; TemplateRenderer ships the magic and
// canvas templates. MarkdownWriter and JSONWriter write the same model as
// a Markdown summary or as JSON.
package report
