// Package device provides the adapters that touch local storage: a
// ContentInspector that reads name, MIME type and size of device files, and
// a Watcher that stages files dropped into a directory.
//
// MIME types are sniffed from content with gabriel-vasile/mimetype and fall
// back to the file extension when the content is not recognised. The watcher
// is built on fsnotify.
package device
