package admin

const loginHtml = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>登录 - Gemini配置后台</title>
<style>
body{font-family:system-ui,sans-serif;background:#f5f6fa;display:flex;justify-content:center;align-items:center;height:100vh;margin:0}
.card{background:#fff;padding:32px;border-radius:8px;box-shadow:0 2px 12px rgba(0,0,0,.08);width:320px}
h1{font-size:18px;margin:0 0 20px}
input{width:100%;box-sizing:border-box;padding:10px;margin-bottom:12px;border:1px solid #ddd;border-radius:4px}
button{width:100%;padding:10px;border:0;border-radius:4px;background:#4f6ef7;color:#fff;cursor:pointer}
.msg{color:#d33;font-size:13px;margin-top:8px;display:none}
</style>
</head>
<body>
<div class="card">
<h1>Gemini配置后台</h1>
<input id="username" placeholder="用户名" autocomplete="username">
<input id="password" type="password" placeholder="密码" autocomplete="current-password">
<button onclick="login()">登录</button>
<div class="msg" id="msg"></div>
</div>
<script>
async function login(){
  const resp = await fetch('/admin/login',{method:'POST',headers:{'Content-Type':'application/json'},
    body:JSON.stringify({username:document.getElementById('username').value,password:document.getElementById('password').value})});
  const r = await resp.json();
  if(r.success){location.href='/admin';return}
  const m=document.getElementById('msg');m.textContent=r.message;m.style.display='block';
}
</script>
</body>
</html>`

const adminHtml = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>Gemini配置后台</title>
<style>
body{font-family:system-ui,sans-serif;background:#f5f6fa;margin:0;padding:24px}
.card{background:#fff;padding:24px;border-radius:8px;box-shadow:0 2px 12px rgba(0,0,0,.08);max-width:720px;margin:0 auto 16px}
h1{font-size:18px;margin:0 0 16px}
textarea{width:100%;box-sizing:border-box;height:120px;padding:10px;border:1px solid #ddd;border-radius:4px;font-family:monospace;font-size:12px}
button{padding:10px 20px;border:0;border-radius:4px;background:#4f6ef7;color:#fff;cursor:pointer;margin-top:12px}
pre{background:#f8f9fb;padding:12px;border-radius:4px;font-size:12px;overflow:auto}
.status{margin-top:12px;padding:10px;border-radius:4px;display:none;font-size:13px}
.ok{background:#e8f6ee;color:#1a7f4b}
.err{background:#fdecec;color:#c0392b}
a{float:right;font-size:13px}
</style>
</head>
<body>
<div class="card">
<a href="/admin/logout">退出</a>
<h1>Cookie配置</h1>
<p style="font-size:13px;color:#666">从浏览器复制gemini.google.com的完整Cookie粘贴于此,保存后自动抓取AT Token、push_id和模型列表。</p>
<textarea id="cookies" placeholder="__Secure-1PSID=xxx; __Secure-1PSIDTS=xxx; ..."></textarea>
<button onclick="save()">保存配置</button>
<div class="status" id="status"></div>
</div>
<div class="card">
<h1>当前配置</h1>
<pre id="config">加载中...</pre>
</div>
<script>
async function loadConfig(){
  const resp = await fetch('/admin/config');
  if(resp.status===401){location.href='/admin/login';return}
  document.getElementById('config').textContent = JSON.stringify(await resp.json(),null,2);
}
async function save(){
  const el=document.getElementById('status');
  const resp = await fetch('/admin/save',{method:'POST',headers:{'Content-Type':'application/json'},
    body:JSON.stringify({cookies:document.getElementById('cookies').value})});
  if(resp.status===401){location.href='/admin/login';return}
  const r = await resp.json();
  el.className='status '+(r.success?'ok':'err');
  el.textContent=r.message;
  el.style.display='block';
  if(r.success)loadConfig();
}
loadConfig();
</script>
</body>
</html>`
