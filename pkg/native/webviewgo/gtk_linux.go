//go:build cgo && linux

package webviewgo

/*
#cgo linux pkg-config: gtk+-3.0
#include <stdint.h>
#include <gtk/gtk.h>

extern void goNanoframeDelete(unsigned long id);

static gboolean nf_on_delete(GtkWidget* widget, GdkEvent* event, gpointer user_data) {
    (void)widget; (void)event;
    goNanoframeDelete((unsigned long)(uintptr_t)user_data);
    return TRUE; // the host decides when the window goes away
}

static void nf_watch_close(void* win, unsigned long id) {
    g_signal_connect(G_OBJECT(win), "delete-event", G_CALLBACK(nf_on_delete), (gpointer)(uintptr_t)id);
}

static void nf_unwatch_close(void* win, unsigned long id) {
    g_signal_handlers_disconnect_by_func(G_OBJECT(win), G_CALLBACK(nf_on_delete), (gpointer)(uintptr_t)id);
}

static void nf_set_visible(void* win, int visible) {
    if (visible) {
        gtk_widget_show(GTK_WIDGET(win));
    } else {
        gtk_widget_hide(GTK_WIDGET(win));
    }
}

static int nf_is_visible(void* win) { return gtk_widget_get_visible(GTK_WIDGET(win)); }
*/
import "C"

import (
	"unsafe"

	"github.com/rexliu/nanoframe/pkg/native"
)

// hostPlatform reaches the GtkWindow webview.h creates for each webview.
// Closing any window there only drops a reference until the last one goes,
// so closes are taken from delete-event instead of from Run returning.
type hostPlatform struct{}

func (hostPlatform) multiWindow() bool { return true }

func (hostPlatform) watchClose(win unsafe.Pointer, id native.Handle) {
	if win != nil {
		C.nf_watch_close(win, C.ulong(id))
	}
}

func (hostPlatform) unwatchClose(win unsafe.Pointer, id native.Handle) {
	if win != nil {
		C.nf_unwatch_close(win, C.ulong(id))
	}
}

func (hostPlatform) setVisible(win unsafe.Pointer, visible bool) error {
	if win == nil {
		return native.ErrUnsupported
	}
	v := C.int(0)
	if visible {
		v = 1
	}
	C.nf_set_visible(win, v)
	return nil
}

func (hostPlatform) visible(win unsafe.Pointer) (bool, error) {
	if win == nil {
		return false, native.ErrUnsupported
	}
	return C.nf_is_visible(win) != 0, nil
}
