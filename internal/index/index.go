package index

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gdbrns/go-whatsapp-multibot/pkg/router"
)

// Index
// @Summary     Session generator page
// @Description Browser page that links a device and shows the resulting SESSION_ID
// @Tags        Root
// @Produce     html
// @Success     200
// @Router      / [get]
func Index(c *fiber.Ctx) error {
	return router.ResponseSuccessWithHTML(c, page)
}

const page = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>KENTECH MULTIBOT Session Generator</title>
<style>
body{font-family:system-ui,sans-serif;max-width:560px;margin:40px auto;padding:0 16px;color:#222}
button{padding:10px 18px;border:0;border-radius:6px;background:#25d366;color:#fff;font-size:15px;cursor:pointer}
input{padding:9px;width:220px;border:1px solid #ccc;border-radius:6px}
#qr img{margin-top:16px;width:256px;height:256px}
#code{font-size:28px;letter-spacing:4px;margin-top:16px}
textarea{width:100%;height:120px;margin-top:16px;font-family:monospace}
.muted{color:#777}
</style>
</head>
<body>
<h1>Session Generator</h1>
<p class="muted">Scan the QR code with WhatsApp &gt; Linked devices, or enter your phone number in international format to get a pairing code.</p>
<p><input id="phone" placeholder="Phone (optional)"> <button id="start">Generate</button></p>
<div id="status" class="muted"></div>
<div id="qr"></div>
<div id="code"></div>
<textarea id="session" readonly hidden></textarea>
<script>
const $ = (id) => document.getElementById(id);
let timer = null;

async function poll(id) {
  const res = await fetch('api/check-session/' + id);
  const body = await res.json();
  if (res.status === 404) { $('status').textContent = 'Session expired, please start again.'; return stop(); }
  if (body.session) {
    $('status').textContent = body.message;
    $('qr').innerHTML = ''; $('code').textContent = '';
    $('session').hidden = false; $('session').value = body.session;
    return stop();
  }
  if (body.status === 'failed') { $('status').textContent = body.message; return stop(); }
}

function stop() { if (timer) { clearInterval(timer); timer = null; } }

$('start').onclick = async () => {
  stop();
  $('status').textContent = 'Starting...';
  $('qr').innerHTML = ''; $('code').textContent = ''; $('session').hidden = true;
  const phone = $('phone').value.trim();
  const res = await fetch('api/generate-session', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify(phone ? {phone} : {}),
  });
  const body = await res.json();
  if (!res.ok) { $('status').textContent = body.error + ': ' + body.message; return; }
  $('status').textContent = body.message;
  if (body.code) { $('code').textContent = body.code; }
  else { $('qr').innerHTML = '<img alt="QR code" src="' + body.qrImage + '">'; }
  timer = setInterval(() => poll(body.sessionId), 3000);
};
</script>
</body>
</html>
`
